// Package domain contains the core entities of the stream ingestion engine.
//
// It has no dependencies on transport, file system or logging concerns.
//
// # Entities
//
//   - [Record]: one delimiter-bounded span of bytes, a candidate JSON document
//   - [Session]: one HTTP connection lifetime, owned by the supervisor
//   - [Fault]: the classified cause of a session ending, from the closed
//     [FaultKind] set
package domain
