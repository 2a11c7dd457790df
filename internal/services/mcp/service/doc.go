// Package service hosts the simlab MCP server over stdio.
package service
