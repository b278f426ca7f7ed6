package session

import "github.com/danmuck/usbtotal/internal/protocol"

// Config holds the fixed protocol values a session validates against.
type Config struct {
	Magic   uint32
	Version uint32
	// Prefetch enables the sequential read-ahead after each response.
	Prefetch bool
}

// DefaultConfig returns the protocol constants with read-ahead enabled.
func DefaultConfig() Config {
	return Config{
		Magic:    protocol.Magic,
		Version:  protocol.Version,
		Prefetch: true,
	}
}
