package domain

import "fmt"

// FaultKind is the closed set of reasons a stream session can end.
// Every kind is session-recoverable: the supervisor reconnects after any of them.
type FaultKind int

const (
	// FaultEndOfStream means the server closed the body cleanly.
	FaultEndOfStream FaultKind = iota
	FaultTLS
	FaultHTTPStatus
	FaultURL
	FaultSocket
	FaultTimeout
	FaultIO
	FaultIncompleteRead
	FaultDecompress
	FaultFrameTooLarge
)

var faultNames = [...]string{
	FaultEndOfStream:    "end_of_stream",
	FaultTLS:            "tls",
	FaultHTTPStatus:     "http_status",
	FaultURL:            "url",
	FaultSocket:         "socket",
	FaultTimeout:        "timeout",
	FaultIO:             "io",
	FaultIncompleteRead: "incomplete_read",
	FaultDecompress:     "decompress",
	FaultFrameTooLarge:  "frame_too_large",
}

// String returns the metric and log label for the kind.
func (k FaultKind) String() string {
	if k < 0 || int(k) >= len(faultNames) {
		return "unknown"
	}
	return faultNames[k]
}

// AllFaultKinds lists every kind, in declaration order.
func AllFaultKinds() []FaultKind {
	kinds := make([]FaultKind, len(faultNames))
	for i := range faultNames {
		kinds[i] = FaultKind(i)
	}
	return kinds
}

// Fault wraps the error that ended a session with its classification.
type Fault struct {
	Kind FaultKind

	// Op is the phase that failed: "connect" or "read".
	Op  string
	Err error
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Op, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", f.Op, f.Kind, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// StatusError is returned by the transport for a non-2xx response.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned %s", e.Status)
	}
	return fmt.Sprintf("server returned %s: %s", e.Status, e.Body)
}
