package ports

import "github.com/bft-labs/firehose/pkg/log"

// Logger is the structured logger used across the engine.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors re-exported for adapters that only import ports.
var (
	String   = log.String
	Int      = log.Int
	Int64    = log.Int64
	Bool     = log.Bool
	Time     = log.Time
	Duration = log.Duration
	Err      = log.Err
)
