package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/firehose/internal/cliconfig"
	"github.com/bft-labs/firehose/pkg/log"
)

const helpBanner = `
  __ _          _
 / _(_)_ __ ___| |__   ___  ___  ___
| |_| | '__/ _ \ '_ \ / _ \/ __|/ _ \
|  _| | | |  __/ | | | (_) \__ \  __/
|_| |_|_|  \___|_| |_|\___/|___/\___|
`

const helpDescription = `
Consume a gzip-compressed NDJSON firehose over HTTP and write every record
to dated files, reconnecting on its own whenever the connection drops.

Highlights:
  - Streams are inflated and framed as they arrive; nothing is buffered whole.
  - Records are canonicalized by a worker pool; malformed ones go to an error log.
  - Output files rotate by UTC date without interrupting the stream.
  - Configure via $HOME/.firehose/config.toml, .env, FIREHOSE_* or flags.
`

var longHelp = strings.TrimSpace(helpBanner) + "\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  firehose stream --url https://stream.example.com/v2/firehose ./out
  firehose stream --config $HOME/.firehose/config.toml --metrics-addr :9090 ./out
  firehose historical job.json ./history
  firehose parse ./out/01-Jan-2026.txt ./out/01-Jan-2026.csv
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli carries the configuration shared by every subcommand. Flags write
// straight into cfg; loadConfig then layers file and env values under them.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string
	envPath string
}

func newRootCmd() *cobra.Command {
	c := &cli{cfg: cliconfig.DefaultConfig()}

	root := &cobra.Command{
		Use:           "firehose",
		Short:         "Resilient gzip NDJSON firehose consumer",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.firehose/config.toml)")
	pf.StringVar(&c.envPath, "env-file", ".env", "dotenv file loaded before reading FIREHOSE_* variables")
	pf.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level: trace, debug, info, warn, error")
	pf.StringVar(&c.cfg.LogFormat, "log-format", c.cfg.LogFormat, "log format: console or json")

	root.AddCommand(newStreamCmd(c), newHistoricalCmd(c), newParseCmd(c))
	return root
}

// loadConfig layers defaults, config file, .env, FIREHOSE_* and flags,
// lowest to highest precedence.
func (c *cli) loadConfig(cmd *cobra.Command) error {
	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return err
		}
	} else if c.cfgPath != "" {
		return fmt.Errorf("config file %s not found", c.cfgPath)
	}

	if err := cliconfig.LoadDotEnv(c.envPath); err != nil {
		return fmt.Errorf("load %s: %w", c.envPath, err)
	}
	return cliconfig.ApplyEnvConfig(&c.cfg, changed)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger := log.NewZerologAdapter(log.Options{Writer: os.Stderr})
		logger.Error("firehose", log.Err(err))
		os.Exit(1)
	}
}
