package flight

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed offer.schema.json
var offerSchema string

var (
	schemaOnce     sync.Once
	schemaCompiled *jsonschema.Schema
	schemaErr      error
)

// Load reads an offer document from a .json, .yaml or .yml file.
func Load(path string) (*Offer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read offer file failed: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err = yamlToJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedOffer, path, err)
		}
	}
	offer, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return offer, nil
}

// Parse validates a JSON offer document against the offer schema and
// decodes it.
func Parse(raw []byte) (*Offer, error) {
	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile offer schema failed: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOffer, err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOffer, err)
	}
	var offer Offer
	if err := json.Unmarshal(raw, &offer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOffer, err)
	}
	if err := offer.Validate(); err != nil {
		return nil, err
	}
	return &offer, nil
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource("offer.schema.json", strings.NewReader(offerSchema)); err != nil {
			schemaErr = err
			return
		}
		schemaCompiled, schemaErr = compiler.Compile("offer.schema.json")
	})
	return schemaCompiled, schemaErr
}

func yamlToJSON(raw []byte) ([]byte, error) {
	var doc any
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return json.Marshal(normalizeYAML(doc))
}

// normalizeYAML turns yaml.v3 timestamps into RFC3339 strings so the
// schema's date-time format check and time.Time decoding both see text.
func normalizeYAML(node any) any {
	switch val := node.(type) {
	case map[string]any:
		for k, v := range val {
			val[k] = normalizeYAML(v)
		}
		return val
	case []any:
		for i, v := range val {
			val[i] = normalizeYAML(v)
		}
		return val
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return val
	}
}
