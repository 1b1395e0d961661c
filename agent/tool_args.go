package agent

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// toolArg declares one argument of a tool a collaborator asks the model to
// call. Kind is a JSON Schema type.
type toolArg struct {
	Name        string
	Kind        string
	Description string
	Required    bool
}

// preferenceToolArgs declares the record_time_preference arguments. The
// names match the json tags of preferenceArgs.
var preferenceToolArgs = []toolArg{
	{Name: "stated", Kind: "boolean", Required: true, Description: "Whether the reply states or accepts any time"},
	{Name: "accepts_proposal", Kind: "boolean", Description: "The reply agrees to the proposed time"},
	{Name: "time_label", Kind: "string", Description: "The time as the participant phrased it"},
	{Name: "specific_time", Kind: "string", Description: "Concrete start time formatted as YYYY-MM-DD HH:MM"},
	{Name: "flexibility", Kind: "string", Description: "strict or flexible"},
	{Name: "duration_minutes", Kind: "integer", Description: "Requested meeting length in minutes, if stated"},
}

var preferenceTool = mustCompileTool(PreferenceToolName, preferenceToolArgs)

// ArgumentError reports tool arguments that do not match the tool's schema.
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("tool %s: invalid arguments: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// compiledTool pairs the schema sent to the model with its compiled form.
type compiledTool struct {
	name      string
	schema    map[string]any
	validator *jsonschema.Schema
}

func compileTool(name string, args []toolArg) (*compiledTool, error) {
	schema := toolSchema(args)

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode %s schema: %w", name, err)
	}

	url := fmt.Sprintf("https://meetmesh.local/tools/%s.schema.json", name)

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("load %s schema: %w", name, err)
	}

	v, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}

	return &compiledTool{name: name, schema: schema, validator: v}, nil
}

func mustCompileTool(name string, args []toolArg) *compiledTool {
	t, err := compileTool(name, args)
	if err != nil {
		panic(err)
	}
	return t
}

// check validates decoded tool arguments.
func (t *compiledTool) check(params map[string]any) error {
	if err := t.validator.Validate(params); err != nil {
		return &ArgumentError{Tool: t.name, Err: err}
	}
	return nil
}

// toolSchema renders args as the JSON Schema object handed to the model.
func toolSchema(args []toolArg) map[string]any {
	props := make(map[string]any, len(args))
	var required []string

	for _, a := range args {
		props[a.Name] = map[string]any{"type": a.Kind, "description": a.Description}
		if a.Required {
			required = append(required, a.Name)
		}
	}

	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}
