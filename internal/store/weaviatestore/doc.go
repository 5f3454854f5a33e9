// Package weaviatestore keeps the symbol index in a Weaviate class so several
// machines can share it. Vectors are supplied by the indexer; the class has
// no vectorizer.
package weaviatestore
