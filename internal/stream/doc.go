// Package stream is the resilient stream ingestion engine.
//
// A [Supervisor] owns the reconnect loop. Each session it opens the HTTP
// stream, inflates it with a [Reader], splits it into records with a
// [Framer], and hands every record to a bounded [Dispatcher]. Any fault or a
// clean end of stream discards the session (inflater state and frame buffer)
// and the supervisor connects again. It only stops when its context is
// canceled, after draining in-flight records.
//
// The read path (Reader and Framer) is single-threaded per session; only the
// dispatcher workers run concurrently.
package stream
