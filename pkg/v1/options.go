package v1

import "github.com/charmbracelet/log"

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	source     string
	configFile string
	backend    string
	logger     *log.Logger
}

// WithSource sets the directory inside the repository to plan for.
func WithSource(dir string) Option {
	return func(c *clientConfig) {
		c.source = dir
	}
}

// WithConfigFile points at a config other than .gsync.yaml at the repository root.
func WithConfigFile(path string) Option {
	return func(c *clientConfig) {
		c.configFile = path
	}
}

// WithBackend forces "git" or "go-git" regardless of the config.
func WithBackend(name string) Option {
	return func(c *clientConfig) {
		c.backend = name
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}
