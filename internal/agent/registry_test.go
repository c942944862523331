package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/bass-society/secretary-backend/internal/data/repos/testutil"
)

func echoTool(name string, executed *bool) *Tool {
	return &Tool{
		Name:        name,
		Description: "echoes its input",
		SideEffect:  SideEffectReadOnly,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text":  map[string]any{"type": "string"},
				"count": map[string]any{"type": "integer"},
				"status": map[string]any{
					"type": "string",
					"enum": []string{"incomplete", "complete"},
				},
				"names": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			"required":             []string{"text"},
			"additionalProperties": false,
		},
		Run: func(_ context.Context, _ Caller, args map[string]any) (any, error) {
			if executed != nil {
				*executed = true
			}
			return args, nil
		},
	}
}

func TestRegistryValidation(t *testing.T) {
	logg := testutil.Logger(t)

	cases := []struct {
		name string
		args string
		want string
	}{
		{"missing required", `{}`, "missing required argument"},
		{"unknown argument", `{"text":"hi","bogus":1}`, "unknown argument"},
		{"wrong type", `{"text":7}`, "must be a string"},
		{"bad enum", `{"text":"hi","status":"done"}`, "must be one of"},
		{"non-integer", `{"text":"hi","count":1.5}`, "must be an integer"},
		{"bad array item", `{"text":"hi","names":["a",2]}`, "must be a string"},
		{"not an object", `[1,2]`, "not a JSON object"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRegistry(logg)
			executed := false
			if err := r.Register(echoTool("echo", &executed)); err != nil {
				t.Fatalf("Register: %v", err)
			}

			_, err := r.Execute(context.Background(), Caller{}, "echo", json.RawMessage(tc.args))
			var inputErr *ToolInputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("want ToolInputError, got %v", err)
			}
			if !strings.Contains(inputErr.Reason, tc.want) {
				t.Fatalf("reason %q does not mention %q", inputErr.Reason, tc.want)
			}
			if executed {
				t.Fatal("tool ran despite invalid input")
			}
		})
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	r := NewRegistry(testutil.Logger(t))
	_, err := r.Execute(context.Background(), Caller{}, "no_such_tool", nil)
	var inputErr *ToolInputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("want ToolInputError, got %v", err)
	}
}

func TestRegistryExecutesValidInput(t *testing.T) {
	r := NewRegistry(testutil.Logger(t))
	executed := false
	if err := r.Register(echoTool("echo", &executed)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	out, err := r.Execute(context.Background(), Caller{}, "echo", json.RawMessage(`{"text":"hi","count":3,"status":"complete","names":["a","b"]}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !executed {
		t.Fatal("tool did not run")
	}
	args := out.(map[string]any)
	if args["text"] != "hi" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry(testutil.Logger(t))
	if err := r.Register(echoTool("echo", nil)); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register(echoTool("echo", nil)); err == nil {
		t.Fatal("duplicate registration should fail")
	}
}

func TestRegistryCatalog(t *testing.T) {
	r := NewRegistry(testutil.Logger(t))
	if err := r.Register(echoTool("zeta", nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(echoTool("alpha", nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	defs := r.Catalog()
	if len(defs) != 2 {
		t.Fatalf("catalog size = %d, want 2", len(defs))
	}
	if defs[0].Name != "alpha" || defs[1].Name != "zeta" {
		t.Fatalf("catalog not sorted: %s, %s", defs[0].Name, defs[1].Name)
	}
	if !strings.HasPrefix(defs[0].Description, "[read-only]") {
		t.Fatalf("description missing side-effect class: %q", defs[0].Description)
	}
	if defs[0].Parameters == nil {
		t.Fatal("catalog entry missing parameters schema")
	}
}

func TestFullToolCatalogRegisters(t *testing.T) {
	gdb := testutil.MemDB(t)
	logg := testutil.Logger(t)

	r := NewRegistry(logg)
	ts := newTestToolset(t, gdb, logg)
	if err := ts.RegisterAll(r); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	if got := len(r.Names()); got != 22 {
		t.Fatalf("registered tools = %d, want 22", got)
	}
}
