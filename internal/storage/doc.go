// Package storage keeps the business-process templates served by the mock MCP
// server. Access is safe for concurrent use and always returns copies.
package storage
