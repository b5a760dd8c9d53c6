package singleinstance

import (
	"os"
	"strconv"
)

const (
	defaultPortStart = 49560
	defaultPortEnd   = 49580

	EnvPortStart = "SINGLEINSTANCE_PORT_START"
	EnvPortEnd   = "SINGLEINSTANCE_PORT_END"
)

// getPortRange returns the configured inclusive TCP port range. Falls back to
// defaults when unset/invalid, and clamps to [1024, 65535].
func getPortRange() (int, int) {
	start := envPort(EnvPortStart, defaultPortStart)
	end := envPort(EnvPortEnd, defaultPortEnd)
	if start < 1024 {
		start = 1024
	}
	if end > 65535 {
		end = 65535
	}
	if end < start {
		start, end = end, start
	}
	return start, end
}

func envPort(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// PortRange exposes the current effective port range for logging and pre-flight checks.
func PortRange() (int, int) { return getPortRange() }
