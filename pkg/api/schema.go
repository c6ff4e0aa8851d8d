package api

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Response schema names, one per file under schemas/.
const (
	schemaUser        = "user"
	schemaVoiceList   = "voice_list"
	schemaProject     = "project"
	schemaProjectList = "project_list"
	schemaFolder      = "folder"
	schemaFolderList  = "folder_list"
	schemaRecording   = "recording"
	schemaOrderList   = "order_list"
)

// schemaValidator compiles embedded schemas on first use and keeps them.
type schemaValidator struct {
	mu    sync.Mutex
	cache map[string]*gojsonschema.Schema
}

var responseSchemas = &schemaValidator{cache: make(map[string]*gojsonschema.Schema)}

func (sv *schemaValidator) get(name string) (*gojsonschema.Schema, error) {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	if s, ok := sv.cache[name]; ok {
		return s, nil
	}
	raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("loading schema %s: %w", name, err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", name, err)
	}
	sv.cache[name] = s
	return s, nil
}

// decode validates body against the named schema, then unmarshals it into out.
func decode(path, schema string, body []byte, out any) error {
	s, err := responseSchemas.get(schema)
	if err != nil {
		return err
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &SchemaError{Path: path, Cause: err}
	}
	if !result.Valid() {
		issues := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			issues[i] = desc.String()
		}
		return &SchemaError{Path: path, Issues: issues}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &SchemaError{Path: path, Cause: err}
	}
	return nil
}
