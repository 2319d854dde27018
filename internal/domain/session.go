package domain

import "time"

// Session describes one HTTP connection lifetime.
// A Session is created on every connect attempt and owned by the supervisor.
type Session struct {
	ID        string
	StartedAt time.Time

	// BytesIn counts compressed bytes read from the transport.
	BytesIn int64

	// BytesInflated counts bytes produced by the gzip inflater.
	BytesInflated int64

	// Records counts records framed and submitted.
	Records int64

	// LastErr is the fault that ended the session, if any.
	LastErr *Fault
}

// Duration returns the time elapsed since the session started.
func (s *Session) Duration() time.Duration {
	return time.Since(s.StartedAt)
}
