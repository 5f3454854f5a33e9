// Package badgerstore is the embedded symbol index. It keeps symbols, their
// embeddings and the per-file content hashes in one BadgerDB, and answers
// similarity queries by brute-force cosine distance.
//
// Key layout:
//
//	sym/<path>\x00<id>  JSON symbol record with its vector
//	hash/<path>         hex sha256 of the indexed file
//
// The generation cache shares the same database under its own prefix.
package badgerstore
