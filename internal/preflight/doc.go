// Package preflight provides readiness checks for the directories, secrets,
// and services clipmark depends on.
//
// The CLI "clipmark check" command runs RunAll and prints one line per
// result. "clipmark serve" runs the server subset before binding so a
// misconfigured data directory fails fast.
package preflight
