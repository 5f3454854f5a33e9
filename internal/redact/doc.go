// Package redact removes secrets from diff hunks and code snippets before
// they are placed in a prompt.
//
// Detection uses regex heuristics for credential assignments, bearer tokens
// and JWTs, private key blocks, and the key formats of AWS, GitHub and
// OpenAI.
// A [Policy] can also withhold whole files by path glob, for example
// "**/.env".
package redact
