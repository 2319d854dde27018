package columns

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/valyala/bytebufferpool"

	"github.com/bft-labs/firehose/internal/ports"
)

// maxLineSize bounds one input record.
const maxLineSize = 32 * 1024 * 1024

// Stats counts the lines seen by Convert.
type Stats struct {
	Lines   int
	Rows    int
	Skipped int
}

// Convert reads newline-delimited records from r and writes a CSV row for
// every record the extractor accepts. Every field is quoted. The header row
// is written just before the first data row, so an input without records
// produces an empty output.
func Convert(r io.Reader, w io.Writer, ex *Extractor, logger ports.Logger) (Stats, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	bw := bufio.NewWriter(w)
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	var st Stats
	header := true
	for sc.Scan() {
		st.Lines++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] != '{' || line[len(line)-1] != '}' {
			st.Skipped++
			continue
		}
		values, ok := ex.Extract(line)
		if !ok {
			st.Skipped++
			logger.Debug("record skipped", ports.Int("line", st.Lines))
			continue
		}
		if header {
			if err := writeRow(bw, buf, ex.Fields()); err != nil {
				return st, err
			}
			header = false
		}
		if err := writeRow(bw, buf, values); err != nil {
			return st, err
		}
		st.Rows++
	}
	if err := sc.Err(); err != nil {
		return st, err
	}
	return st, bw.Flush()
}

var quoteEscaper = strings.NewReplacer(`"`, `""`)

// writeRow writes fields quoted, comma separated, CRLF terminated.
func writeRow(w io.Writer, buf *bytebufferpool.ByteBuffer, fields []string) error {
	buf.Reset()
	for i, f := range fields {
		if i > 0 {
			_ = buf.WriteByte(',')
		}
		_ = buf.WriteByte('"')
		_, _ = quoteEscaper.WriteString(buf, f)
		_ = buf.WriteByte('"')
	}
	_, _ = buf.WriteString("\r\n")
	_, err := w.Write(buf.B)
	return err
}
