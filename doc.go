// Package cart implements an ordered associative map keyed by byte strings,
// backed by a compressed adaptive-radix trie.
//
// The map can run in two modes, chosen at construction time: threaded, where
// a single writer goroutine may run concurrently with any number of reader
// goroutines performing lookups without taking a lock on the common path,
// and single-threaded, which skips epoch-based reclamation and releases
// retired nodes immediately.
//
// Keys are converted to byte sequences through the Key trait boundary
// (ToBytes/FromBytes); the engine itself only ever sees and orders bytes.
package cart
