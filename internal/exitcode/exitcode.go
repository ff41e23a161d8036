// Package exitcode defines exit codes for the CLI.
package exitcode

// Exit codes. When several failures happen in one run (the shell), the
// highest code wins.
const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, rejected input, no such task).
	UserError = 1

	// AuthError indicates an auth/config error.
	AuthError = 2

	// BackendError indicates a backend/API/network error.
	BackendError = 3
)
