// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package exposes the playground as MCP tools using the
// mark3labs/mcp-go library:
//
//   - execute_code runs a program and returns the playground response as JSON
//   - list_languages returns the language catalog
//   - check_health reports backend availability
//
// A failed execution is still a normal tool result; IsError is reserved for
// requests that never reached a backend.
//
// The server supports both stdio and streamable HTTP transports as configured
// by the application configuration.
//
// Usage:
//
//	server, err := mcpserver.New(cfg, logger, playgroundService)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = server.Serve()
package mcpserver
