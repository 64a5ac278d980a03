// Package mcp talks to the MCP endpoint of the BPM app. Every call is a
// single GET with the configured headers and a fixed timeout. A 200 response
// is decoded as JSON; any other status is reported as a *StatusError. The
// package also provides an offline Source backed by the built-in sample data.
package mcp
