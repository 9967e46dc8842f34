// Package utils exposes reusable helpers consumed by the reviewsync commands.
//
// It houses the ConfigurationLoader and LoggerFactory abstractions that
// integrate Viper, mapstructure decode hooks, environment variables, and zap
// logging for the CLI.
package utils
