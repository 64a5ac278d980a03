// Package application provides application initialization and dependency wiring.
// It encapsulates the creation of the process storage, the mock MCP handlers
// and router, and the HTTP server instance, keeping the main package focused
// on CLI parsing and orchestration.
package application
