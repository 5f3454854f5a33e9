// Package index builds and describes the symbol index that the audit
// pipeline reads from.
//
// A Symbol is a named function or class with an inclusive 1-based line
// range. Symbols are extracted from a syntax tree through the small [Node]
// visitor interface, so extraction logic does not depend on a particular
// parser; the tree-sitter adapter in treesitter.go is the production
// implementation. [Scanner] finds files whose content hash changed since the
// last run and [Indexer] re-extracts, embeds and stores them.
//
// Storage lives behind the [Store] and [HashStore] interfaces, implemented
// by the badgerstore and weaviatestore packages.
package index
