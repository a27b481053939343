// Package sandbox provides the on-demand code execution engine.
//
// A submission passes through a fixed pipeline: the static Filter rejects
// known-dangerous constructs, the Registry resolves the language to a
// LanguageProfile whose toolchain was found at startup, the WorkspaceManager
// writes the source into a private directory, and the Orchestrator compiles
// (when needed) and runs the program under a wall-clock budget. Every path
// ends with the workspace released and a single Outcome whose Status says
// what happened.
//
// The Filter is advisory. It matches raw text and is trivially bypassed, so
// it is not an isolation boundary.
//
// RemoteExecutor satisfies the same Executor contract by forwarding requests
// to a Piston-compatible hosted API.
//
// Usage:
//
//	executor, err := sandbox.NewExecutor(logger, cfg)
//	outcome := executor.Execute(ctx, sandbox.Request{
//	    Language: "python",
//	    Code:     "print('Hello, World!')",
//	})
//	fmt.Println(outcome.Status, outcome.Stdout)
package sandbox
