// Package cache stores raw model responses so an unchanged prompt is not
// sent twice.
//
// Entries are keyed by a SHA-256 hash of the provider, model and prompts and
// live in the same BadgerDB as the symbol index, under the "cache/" prefix.
// Expiry uses badger's per-entry TTL. All prompts have already been through
// secret redaction when redaction is enabled.
package cache
