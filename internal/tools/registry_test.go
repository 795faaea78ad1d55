package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) *Tool {
	return &Tool{
		Name:        name,
		Description: "Echo the text argument",
		Category:    CategoryGeneral,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return StringArg(args, "text"), nil
		},
		Schema: ToolSchema{
			Required: []string{"text"},
			Properties: map[string]Property{
				"text":  {Type: "string", Description: "Text to echo"},
				"times": {Type: "integer", Default: 1},
			},
		},
	}
}

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("echo")))

	got := reg.Get("echo")
	require.NotNil(t, got)
	assert.Equal(t, "echo", got.Name)
	assert.True(t, reg.Has("echo"))
	assert.Nil(t, reg.Get("missing"))
}

func TestRegisterDuplicateAndReplace(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("echo")))

	err := reg.Register(echoTool("echo"))
	assert.ErrorIs(t, err, ErrToolAlreadyRegistered)

	v2 := echoTool("echo")
	v2.Description = "v2"
	replaced, err := reg.Replace(v2)
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Equal(t, "v2", reg.Get("echo").Description)
	assert.Equal(t, 1, reg.Count())
}

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry()
	noop := func(ctx context.Context, args map[string]any) (string, error) { return "", nil }

	tests := []struct {
		name    string
		tool    *Tool
		wantErr error
	}{
		{"empty name", &Tool{Execute: noop}, ErrToolNameEmpty},
		{"nil execute", &Tool{Name: "x"}, ErrToolExecuteNil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, reg.Register(tt.tool), tt.wantErr)
		})
	}
}

func TestUnregisterAndNames(t *testing.T) {
	reg := NewRegistry()
	for _, n := range []string{"b", "a", "c"} {
		require.NoError(t, reg.Register(echoTool(n)))
	}
	assert.Equal(t, []string{"a", "b", "c"}, reg.Names())

	assert.True(t, reg.Unregister("b"))
	assert.False(t, reg.Unregister("b"))
	assert.Equal(t, []string{"a", "c"}, reg.Names())
}

func TestExecute(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("echo")))

	res, err := reg.Execute(context.Background(), "echo", map[string]any{"text": "oi"})
	require.NoError(t, err)
	assert.Equal(t, "oi", res.Result)
	assert.True(t, res.IsSuccess())

	_, err = reg.Execute(context.Background(), "echo", nil)
	assert.ErrorIs(t, err, ErrMissingRequiredArg)

	_, err = reg.Execute(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestExecute_ToolErrorsAndPanics(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, reg.Register(&Tool{Name: "fail", Execute: func(context.Context, map[string]any) (string, error) {
		return "partial", boom
	}}))
	require.NoError(t, reg.Register(&Tool{Name: "panic", Execute: func(context.Context, map[string]any) (string, error) {
		panic("bad skill")
	}}))

	res, err := reg.Execute(context.Background(), "fail", nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "partial", res.Result)
	assert.False(t, res.IsSuccess())

	res, err = reg.Execute(context.Background(), "panic", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad skill")
	assert.NotNil(t, res)
}

func TestSchemas(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("echo")))

	data, err := json.Marshal(reg.Schemas())
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	want := []map[string]any{{
		"type": "function",
		"function": map[string]any{
			"name":        "echo",
			"description": "Echo the text argument",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text":  map[string]any{"type": "string", "description": "Text to echo"},
					"times": map[string]any{"type": "integer", "default": 1.0},
				},
				"required": []any{"text"},
			},
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("schemas (-want +got):\n%s", diff)
	}
}

func TestDefinitions(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("echo")))

	defs := reg.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "echo", defs[0].Name)
	params := defs[0].Parameters
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, []interface{}{"text"}, params["required"])
	props := params["properties"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"type": "integer", "default": 1}, props["times"])
}

func TestIntArg(t *testing.T) {
	args := map[string]any{"a": 3, "b": 4.0, "c": "x"}
	assert.Equal(t, 3, IntArg(args, "a", 0))
	assert.Equal(t, 4, IntArg(args, "b", 0))
	assert.Equal(t, 9, IntArg(args, "c", 9))
	assert.Equal(t, 9, IntArg(args, "missing", 9))
}
