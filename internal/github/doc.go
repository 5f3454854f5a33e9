// Package github fetches pull request diffs and posts validated findings as a
// single pull request review with inline comments.
//
// The client is go-github authenticated through an oauth2 static token
// source, read from GITHUB_TOKEN by default. GITHUB_API_URL points it at a
// GitHub Enterprise or test server.
package github
