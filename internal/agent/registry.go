package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bass-society/secretary-backend/internal/clients/openai"
	types "github.com/bass-society/secretary-backend/internal/domain"
	"github.com/bass-society/secretary-backend/internal/pkg/logger"
)

// SideEffect classifies a tool. Write tools run only on explicit user
// request; the dispatcher exposes the class to the model in each tool's
// description.
type SideEffect string

const (
	SideEffectReadOnly SideEffect = "read-only"
	SideEffectWrite    SideEffect = "write"
)

// Caller identifies who is speaking on this chat turn. Member is nil
// when the chat identity is not linked to a roster member.
type Caller struct {
	ChatID string
	Member *types.Member
	Now    time.Time
}

// Tool is one named, schema-validated operation. The registry is the
// only path from chat intent to the store: no tool accepts a raw query.
type Tool struct {
	Name        string
	Description string
	SideEffect  SideEffect
	// Parameters is a JSON-schema object: properties, required,
	// additionalProperties false.
	Parameters map[string]any
	Run        func(ctx context.Context, caller Caller, args map[string]any) (any, error)
}

// ToolInputError means the arguments never reached the tool: unknown
// tool name, malformed JSON, or a schema violation.
type ToolInputError struct {
	Tool   string
	Reason string
}

func (e *ToolInputError) Error() string {
	return fmt.Sprintf("invalid input for tool %q: %s", e.Tool, e.Reason)
}

// ErrAmbiguousReference marks a write whose entity reference matched
// more than one record. It surfaces to the user as a clarification
// request, never as a guessed write.
var ErrAmbiguousReference = errors.New("ambiguous reference")

// Registry is the closed set of tools the dispatcher may execute.
type Registry struct {
	tools map[string]*Tool
	log   *logger.Logger
}

func NewRegistry(baseLog *logger.Logger) *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
		log:   baseLog.With("service", "ToolRegistry"),
	}
}

func (r *Registry) Register(t *Tool) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("tool requires a name")
	}
	if t.Run == nil {
		return fmt.Errorf("tool %q requires an implementation", t.Name)
	}
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %q already registered", t.Name)
	}
	if t.Parameters == nil {
		t.Parameters = map[string]any{
			"type":                 "object",
			"properties":           map[string]any{},
			"additionalProperties": false,
		}
	}
	r.tools[t.Name] = t
	return nil
}

func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog renders the registry as model-facing tool definitions.
func (r *Registry) Catalog() []openai.ToolDef {
	defs := make([]openai.ToolDef, 0, len(r.tools))
	for _, name := range r.Names() {
		t := r.tools[name]
		defs = append(defs, openai.ToolDef{
			Name:        t.Name,
			Description: fmt.Sprintf("[%s] %s", t.SideEffect, t.Description),
			Parameters:  t.Parameters,
		})
	}
	return defs
}

// Execute validates the raw arguments against the tool's schema and
// runs it. Validation failures return a *ToolInputError without
// touching the underlying operation.
func (r *Registry) Execute(ctx context.Context, caller Caller, name string, rawArgs json.RawMessage) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, &ToolInputError{Tool: name, Reason: "unknown tool"}
	}

	args := map[string]any{}
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, &ToolInputError{Tool: name, Reason: fmt.Sprintf("arguments are not a JSON object: %v", err)}
		}
	}

	if reason := validateArgs(t.Parameters, args); reason != "" {
		return nil, &ToolInputError{Tool: name, Reason: reason}
	}

	r.log.Debug("Executing tool", "tool", name, "side_effect", string(t.SideEffect))
	return t.Run(ctx, caller, args)
}

// validateArgs checks args against a flat object schema: required
// keys present, no unknown keys, property types and enums respected.
// Returns an empty string when valid.
func validateArgs(schema map[string]any, args map[string]any) string {
	props, _ := schema["properties"].(map[string]any)

	if required, ok := schema["required"].([]string); ok {
		for _, key := range required {
			if _, present := args[key]; !present {
				return fmt.Sprintf("missing required argument %q", key)
			}
		}
	}

	for key, value := range args {
		propAny, known := props[key]
		if !known {
			return fmt.Sprintf("unknown argument %q", key)
		}
		prop, _ := propAny.(map[string]any)
		if reason := validateValue(key, prop, value); reason != "" {
			return reason
		}
	}
	return ""
}

func validateValue(key string, prop map[string]any, value any) string {
	wantType, _ := prop["type"].(string)
	switch wantType {
	case "string":
		s, ok := value.(string)
		if !ok {
			return fmt.Sprintf("argument %q must be a string", key)
		}
		if enum, ok := prop["enum"].([]string); ok {
			for _, allowed := range enum {
				if s == allowed {
					return ""
				}
			}
			return fmt.Sprintf("argument %q must be one of %v", key, enum)
		}
	case "integer":
		f, ok := value.(float64)
		if !ok || f != float64(int64(f)) {
			return fmt.Sprintf("argument %q must be an integer", key)
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return fmt.Sprintf("argument %q must be a number", key)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("argument %q must be a boolean", key)
		}
	case "array":
		items, ok := value.([]any)
		if !ok {
			return fmt.Sprintf("argument %q must be an array", key)
		}
		itemProp, _ := prop["items"].(map[string]any)
		for i, item := range items {
			if reason := validateValue(fmt.Sprintf("%s[%d]", key, i), itemProp, item); reason != "" {
				return reason
			}
		}
	}
	return ""
}
