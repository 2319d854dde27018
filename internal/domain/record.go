package domain

import "bytes"

// Record is one framed unit of the stream: the bytes between two delimiters.
// It is never mutated after framing.
type Record []byte

// Blank reports whether the record is empty or whitespace only.
func (r Record) Blank() bool {
	return len(bytes.TrimSpace(r)) == 0
}
