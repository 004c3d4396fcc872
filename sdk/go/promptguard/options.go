package promptguard

import "github.com/rs/zerolog"

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	policyPath string
	remoteAddr string
	logger     zerolog.Logger
}

// WithPolicy sets the path to a policy YAML file.
func WithPolicy(path string) Option {
	return func(c *clientConfig) { c.policyPath = path }
}

// WithRemote sends checks to a policy server at addr (host:port) instead of
// evaluating them in-process.
func WithRemote(addr string) Option {
	return func(c *clientConfig) { c.remoteAddr = addr }
}

// WithLogger sets the logger used by the in-process policy manager.
func WithLogger(l zerolog.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}
