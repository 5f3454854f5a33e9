// Package cli wires together the Cobra command tree for the sentinel binary.
//
// It defines the root command and its subcommands (audit, index, db, cache,
// config, version), binds flags onto the layered configuration, opens the
// symbol store and model provider, runs the audit engine and maps outcomes
// to deterministic exit codes for CI gating.
package cli
