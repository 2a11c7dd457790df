// Package domain defines the MCP tools that expose the simulation service.
//
// Each tool pairs a schema constructor (XTool) with a handler constructor
// (XHandler) bound to an app.Simulator, so the same tools can front the
// in-process service or a remote gRPC server.
package domain
