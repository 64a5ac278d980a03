// Package config loads the MCP connection settings of the BPM toolkit from a
// JSON config file, a .env file, environment variables and CLI flags, with
// precedence: CLI flags > config file > environment variables > defaults.
// It also implements the configuration self-test used by `bpmctl config check`.
package config
