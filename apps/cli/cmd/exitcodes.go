package cmd

// Exit codes for the isoenv CLI
const (
	// ExitSuccess indicates every selected environment succeeded
	ExitSuccess = 0

	// ExitEnvFailure indicates at least one environment failed
	ExitEnvFailure = 1

	// ExitParseError indicates a configuration parsing or validation error
	ExitParseError = 2

	// ExitConfigError indicates the configuration could not be loaded
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
