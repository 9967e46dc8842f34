// Package execshell provides structured helpers for invoking review-backend commands remotely.
//
// ShellExecutor adds logging and exit-code handling on top of a CommandRunner.
// SSHCommandRunner is the default runner: it opens an authenticated SSH session
// per command, streams optional standard input, and captures standard output
// and standard error.
package execshell
