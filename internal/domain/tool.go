package domain

import (
	"fmt"
	"strings"
	"time"
)

// ToolMethod is the HTTP verb a tool contract entry is allowed to declare.
type ToolMethod string

const (
	MethodGet    ToolMethod = "GET"
	MethodPost   ToolMethod = "POST"
	MethodPut    ToolMethod = "PUT"
	MethodPatch  ToolMethod = "PATCH"
	MethodDelete ToolMethod = "DELETE"
)

// AllowedToolMethods is the closed verb set for contract validation.
var AllowedToolMethods = map[ToolMethod]struct{}{
	MethodGet:    {},
	MethodPost:   {},
	MethodPut:    {},
	MethodPatch:  {},
	MethodDelete: {},
}

// ToolDefinition is one invokable operation declared by the tool contract.
// Path is a URL template and may contain {placeholder} segments.
type ToolDefinition struct {
	Name        string     `json:"name"`
	Method      ToolMethod `json:"method"`
	Path        string     `json:"path"`
	Description string     `json:"description,omitempty"`
}

func (d ToolDefinition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return NewError(CodeInvalidArgument, "tool.validate", "tool name is required", nil)
	}
	if strings.TrimSpace(string(d.Method)) == "" {
		return NewError(CodeInvalidArgument, "tool.validate", fmt.Sprintf("tool %s: method is required", d.Name), nil)
	}
	if _, ok := AllowedToolMethods[ToolMethod(strings.ToUpper(string(d.Method)))]; !ok {
		return NewError(CodeInvalidArgument, "tool.validate", fmt.Sprintf("tool %s: method %q is not allowed", d.Name, d.Method), nil)
	}
	if strings.TrimSpace(d.Path) == "" {
		return NewError(CodeInvalidArgument, "tool.validate", fmt.Sprintf("tool %s: path is required", d.Name), nil)
	}
	return nil
}

// ToolContract is the ordered list of tool definitions. It is replaced
// atomically on a successful reload and never partially updated.
type ToolContract []ToolDefinition

func (c ToolContract) Validate() error {
	seen := make(map[string]struct{}, len(c))
	for _, def := range c {
		if err := def.Validate(); err != nil {
			return err
		}
		if _, dup := seen[def.Name]; dup {
			return NewError(CodeInvalidArgument, "contract.validate", fmt.Sprintf("duplicate tool name %q", def.Name), nil)
		}
		seen[def.Name] = struct{}{}
	}
	return nil
}

// Clone returns an independent copy so callers cannot mutate the cache.
func (c ToolContract) Clone() ToolContract {
	if c == nil {
		return nil
	}
	out := make(ToolContract, len(c))
	copy(out, c)
	return out
}

// ToolArgs carries extracted or caller-supplied tool arguments.
type ToolArgs map[string]string

// ToolResult is the uniform envelope every dispatch produces. It is always
// present after execution; Success selects between Data and Error.
type ToolResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
}

// ToolInvocation is the outcome of classifying free text: which tool to run
// and the arguments extracted from the text.
type ToolInvocation struct {
	Tool string   `json:"tool"`
	Args ToolArgs `json:"args,omitempty"`
}

// ToolCall records one dispatched invocation.
type ToolCall struct {
	ID        string     `json:"id"`
	Tool      string     `json:"tool"`
	Args      ToolArgs   `json:"args,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Result    ToolResult `json:"result"`
}

// NavigationIntent is the pure result of tools that only steer the operator
// console, with no I/O of their own.
type NavigationIntent struct {
	Target string `json:"target"`
}
