// Package gatekit provides a Go agent SDK with first-class support for the
// three features most agent frameworks leave to manual callback code:
// human-in-the-loop tool approval, persistent conversation storage, and
// per-run context injection.
//
// The SDK calls the Anthropic API directly via anthropic-sdk-go. There are
// two main entry points:
//
//   - [Agent] is a stateless execution engine that holds config + tools.
//   - [Client] is a stateful session container wrapping an Agent.
//
// # Quick Start
//
//	a := gatekit.NewAgent(gatekit.WithModel(anthropic.ModelClaudeSonnet4_5))
//	stream := a.Run(ctx, "Process a $150 refund for order 98765")
//	for stream.Next() {
//	    if e, ok := stream.Current().(*gatekit.StreamEvent); ok {
//	        fmt.Print(e.Delta)
//	    }
//	}
//
// # Sub-packages
//
//   - [approval] decides whether a tool call may proceed: rule-based gates,
//     console prompting, and a resolvable pending-approval queue.
//   - [conversation] persists conversation records (file, memory, bbolt).
//   - [runctx] carries request-scoped user context into tool implementations.
//   - [tools] provides agent-callable tools over conversations and run context.
//   - [audit] records tool executions for an audit trail.
//   - [mcp] connects external tool servers over stdio JSON-RPC.
//   - [hook] defines callback types for intercepting tool execution.
package gatekit
