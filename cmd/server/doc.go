// Package main is the entry point for the code runner server.
//
// The server executes short programs submitted by learners in one of several
// languages, either with the toolchains installed on the host or by
// delegating to a hosted execution API. It exposes the same playground
// contract as an HTTP API (gin) and as MCP tools over stdio or HTTP.
//
// The application uses Uber's fx framework for dependency injection and lifecycle
// management, with zap for structured logging and viper for configuration.
package main
