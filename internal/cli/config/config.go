package config

// RootConfig carries the global flags shared by all subcommands.
type RootConfig struct {
	ConfigPath string
	LogLevel   string
}
