package catalogs

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() {
	schemas = map[string]*jsonschema.Schema{}
	for _, name := range []string{"spacecraft.json", "resources.json", "technologies.json"} {
		file := "schemas/" + name[:len(name)-len(path.Ext(name))] + ".schema.json"
		raw, err := schemaFS.ReadFile(file)
		if err != nil {
			schemasErr = err
			return
		}
		url := "mem://catalogs/" + file
		c := jsonschema.NewCompiler()
		if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
			schemasErr = fmt.Errorf("%s: %w", file, err)
			return
		}
		s, err := c.Compile(url)
		if err != nil {
			schemasErr = fmt.Errorf("%s: %w", file, err)
			return
		}
		schemas[name] = s
	}
}

func validateFile(name string, raw []byte) error {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return schemasErr
	}
	s := schemas[name]
	if s == nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
