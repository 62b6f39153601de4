// Package dispatch executes named tools and classifies free-text operator
// commands into tool calls.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"opsd/internal/domain"
)

// RunFunc performs one tool invocation. data is the opaque payload and
// message the human-readable summary for the success envelope.
type RunFunc func(ctx context.Context, args domain.ToolArgs) (data any, message string, err error)

// Tool is a registered, executable operation.
type Tool struct {
	Name        string
	Description string
	Run         RunFunc
}

// Dispatcher owns the tool registry and the ordered command rules. Execute
// never lets a panic or error escape: every outcome is a ToolResult.
type Dispatcher struct {
	tools     map[string]Tool
	rules     []Rule
	logger    *zap.Logger
	nowFn     func() time.Time
	onExecute func(tool, status string)
}

type Option func(*Dispatcher)

// WithExecuteHook observes execution outcomes ("ok", "error", "not_found")
// for metrics.
func WithExecuteHook(hook func(tool, status string)) Option {
	return func(d *Dispatcher) { d.onExecute = hook }
}

// WithClock overrides the timestamp source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.nowFn = now }
}

// WithRules replaces the default command rules.
func WithRules(rules []Rule) Option {
	return func(d *Dispatcher) { d.rules = rules }
}

func New(logger *zap.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		tools:  make(map[string]Tool),
		rules:  DefaultRules(),
		logger: logger,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds a tool to the registry. Duplicate names are rejected.
func (d *Dispatcher) Register(tool Tool) error {
	if tool.Name == "" {
		return domain.NewError(domain.CodeInvalidArgument, "dispatch.register", "tool name is required", nil)
	}
	if tool.Run == nil {
		return domain.NewError(domain.CodeInvalidArgument, "dispatch.register", fmt.Sprintf("tool %s has no run function", tool.Name), nil)
	}
	if _, exists := d.tools[tool.Name]; exists {
		return domain.NewError(domain.CodeInvalidArgument, "dispatch.register", fmt.Sprintf("tool %s already registered", tool.Name), nil)
	}
	d.tools[tool.Name] = tool
	return nil
}

// MustRegister panics on registration failure; wiring-time use only.
func (d *Dispatcher) MustRegister(tools ...Tool) {
	for _, tool := range tools {
		if err := d.Register(tool); err != nil {
			panic(err)
		}
	}
}

// Execute runs the named tool and wraps every outcome in a ToolResult.
func (d *Dispatcher) Execute(ctx context.Context, name string, args domain.ToolArgs) (result domain.ToolResult) {
	tool, ok := d.tools[name]
	if !ok {
		if d.onExecute != nil {
			d.onExecute(name, "not_found")
		}
		return domain.ToolResult{
			Success: false,
			Error:   fmt.Sprintf("unknown tool: %s", name),
			Message: "tool not found",
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("tool panicked", zap.String("tool", name), zap.Any("panic", rec))
			result = domain.ToolResult{
				Success: false,
				Error:   fmt.Sprintf("tool %s panicked: %v", name, rec),
				Message: fmt.Sprintf("%s failed", name),
			}
			if d.onExecute != nil {
				d.onExecute(name, "error")
			}
		}
	}()

	data, message, err := tool.Run(ctx, args)
	if err != nil {
		d.logger.Warn("tool execution failed", zap.String("tool", name), zap.Error(err))
		if d.onExecute != nil {
			d.onExecute(name, "error")
		}
		return domain.ToolResult{
			Success: false,
			Error:   err.Error(),
			Message: fmt.Sprintf("%s failed", name),
		}
	}

	if d.onExecute != nil {
		d.onExecute(name, "ok")
	}
	return domain.ToolResult{Success: true, Data: data, Message: message}
}

// Interpret matches free text against the ordered rule list; the first
// matching rule wins. A nil result means no rule matched and the caller
// should fall back to a generic reply.
func (d *Dispatcher) Interpret(text string) *domain.ToolInvocation {
	for _, rule := range d.rules {
		if !rule.Match(text) {
			continue
		}
		var args domain.ToolArgs
		if rule.Extract != nil {
			args = rule.Extract(text)
		}
		return &domain.ToolInvocation{Tool: rule.Tool, Args: args}
	}
	return nil
}

// Dispatch interprets and executes a free-text command. ok is false when no
// rule matched; the returned call is nil in that case.
func (d *Dispatcher) Dispatch(ctx context.Context, text string) (*domain.ToolCall, bool) {
	invocation := d.Interpret(text)
	if invocation == nil {
		return nil, false
	}
	call := &domain.ToolCall{
		ID:        uuid.NewString(),
		Tool:      invocation.Tool,
		Args:      invocation.Args,
		Timestamp: d.nowFn(),
	}
	call.Result = d.Execute(ctx, invocation.Tool, invocation.Args)
	return call, true
}
