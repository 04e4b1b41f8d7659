package approval

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// ConsolePrompter asks for approval on a terminal: it prints the tool name
// and its arguments, then reads a yes/no answer. Anything other than "yes"
// or "y" denies.
type ConsolePrompter struct {
	In  io.Reader
	Out io.Writer
}

// Func returns an approval callback backed by the prompter. The read blocks,
// so wrap it with [WithTimeout] when an unattended terminal must not hang a
// run forever.
func (p *ConsolePrompter) Func() Func {
	reader := bufio.NewReader(p.In)

	return func(_ context.Context, toolName string, input json.RawMessage) (Decision, error) {
		fmt.Fprintln(p.Out, strings.Repeat("=", 60))
		fmt.Fprintln(p.Out, "APPROVAL REQUIRED")
		fmt.Fprintf(p.Out, "Tool: %s\n", toolName)
		fmt.Fprintf(p.Out, "Arguments: %s\n", formatArgs(input))
		fmt.Fprint(p.Out, "Approve this action? (yes/no): ")

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return Deny, fmt.Errorf("read approval answer: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "yes", "y":
			return Allow, nil
		default:
			return Deny, nil
		}
	}
}

// WithTimeout wraps an approval callback with a deadline. If the callback
// does not answer in time, the decision is Deny.
func WithTimeout(fn Func, timeout time.Duration) Func {
	return func(ctx context.Context, toolName string, input json.RawMessage) (Decision, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		type answer struct {
			d   Decision
			err error
		}
		ch := make(chan answer, 1)
		go func() {
			d, err := fn(ctx, toolName, input)
			ch <- answer{d, err}
		}()

		select {
		case a := <-ch:
			return a.d, a.err
		case <-ctx.Done():
			return Deny, nil
		}
	}
}

// formatArgs renders tool input as "key: value" pairs for display, falling
// back to the raw JSON when it is not an object.
func formatArgs(input json.RawMessage) string {
	var args map[string]any
	if err := json.Unmarshal(input, &args); err != nil || len(args) == 0 {
		return string(input)
	}

	var b strings.Builder
	first := true
	for k, v := range args {
		if !first {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, v)
		first = false
	}
	return b.String()
}
