package rest

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed todos.schema.json
var schemaJSON []byte

const schemaURL = "todos.schema.json"

// schemas holds the compiled response schemas.
type schemas struct {
	list *jsonschema.Schema
	todo *jsonschema.Schema
}

func compileSchemas() (*schemas, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	list, err := compiler.Compile(schemaURL + "#/$defs/list")
	if err != nil {
		return nil, fmt.Errorf("compile list schema: %w", err)
	}
	todo, err := compiler.Compile(schemaURL + "#/$defs/todo")
	if err != nil {
		return nil, fmt.Errorf("compile todo schema: %w", err)
	}
	return &schemas{list: list, todo: todo}, nil
}

// validate checks body against schema before it is decoded into typed records.
func validate(schema *jsonschema.Schema, body []byte) error {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return schemaError(err)
	}
	return nil
}

// schemaError flattens a jsonschema.ValidationError into one line per leaf cause.
func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("invalid response: %w", err)
	}
	var msgs []string
	collectCauses(ve, &msgs)
	if len(msgs) == 0 {
		msgs = append(msgs, ve.Message)
	}
	return fmt.Errorf("invalid response: %s", strings.Join(msgs, "; "))
}

func collectCauses(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*out = append(*out, loc+": "+ve.Message)
		return
	}
	for _, c := range ve.Causes {
		collectCauses(c, out)
	}
}
