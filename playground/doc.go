// Package playground is the inbound contract of the code runner.
//
// Service wraps a sandbox.Executor with a host-level concurrency ceiling and
// renders each sandbox.Outcome as a Response carrying success, output, error
// text, exit code, and a human-readable execution time. It also serves the
// language catalog, backend health, and per-language starter templates.
package playground
