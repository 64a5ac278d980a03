// Package mockserver is a stand-in MCP server for the BPM app. It serves
// business-process templates over the same endpoints the real server exposes,
// so the client can be exercised end to end without the BPM app running.
package mockserver
