package config

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	domainconfig "github.com/felixgeelhaar/mediacatalog/domain/config"
)

func TestGenerateSchema(t *testing.T) {
	t.Parallel()

	schema := GenerateSchema()

	if schema.Schema != "https://json-schema.org/draft/2020-12/schema" {
		t.Errorf("Schema = %s, want draft/2020-12", schema.Schema)
	}
	if schema.Type != "object" {
		t.Errorf("Type = %s, want object", schema.Type)
	}
	if schema.Title != "Catalog Configuration" {
		t.Errorf("Title = %s, want Catalog Configuration", schema.Title)
	}

	expected := []string{"name", "version", "api", "fetch", "rate_limit", "cache", "resilience", "comments", "logging", "telemetry"}
	for _, prop := range expected {
		if _, ok := schema.Properties[prop]; !ok {
			t.Errorf("missing property: %s", prop)
		}
	}
}

// Every yaml key of CatalogConfig must appear in the schema.
func TestGenerateSchema_CoversConfig(t *testing.T) {
	t.Parallel()

	var walk func(path string, typ reflect.Type, schema *JSONSchema)
	walk = func(path string, typ reflect.Type, schema *JSONSchema) {
		for i := 0; i < typ.NumField(); i++ {
			field := typ.Field(i)
			name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
			if name == "" || name == "-" {
				continue
			}
			prop, ok := schema.Properties[name]
			if !ok {
				t.Errorf("schema missing %s%s", path, name)
				continue
			}
			if field.Type.Kind() == reflect.Struct && len(prop.Properties) > 0 {
				walk(path+name+".", field.Type, prop)
			}
		}
	}
	walk("", reflect.TypeOf(domainconfig.CatalogConfig{}), GenerateSchema())
}

func TestGenerateSchema_Enums(t *testing.T) {
	t.Parallel()

	schema := GenerateSchema()

	tests := []struct {
		name string
		prop *JSONSchema
		want int
	}{
		{name: "rate_limit.mode", prop: schema.Properties["rate_limit"].Properties["mode"], want: 2},
		{name: "rate_limit.backend", prop: schema.Properties["rate_limit"].Properties["backend"], want: 2},
		{name: "comments.backend", prop: schema.Properties["comments"].Properties["backend"], want: 8},
		{name: "logging.level", prop: schema.Properties["logging"].Properties["level"], want: 5},
	}

	for _, tt := range tests {
		if len(tt.prop.Enum) != tt.want {
			t.Errorf("%s has %d enum values, want %d", tt.name, len(tt.prop.Enum), tt.want)
		}
	}
}

func TestSchemaJSON(t *testing.T) {
	t.Parallel()

	jsonStr, err := SchemaJSON()
	if err != nil {
		t.Fatalf("SchemaJSON() error = %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		t.Fatalf("SchemaJSON() returned invalid JSON: %v", err)
	}
	if parsed["$schema"] == nil {
		t.Error("Schema missing $schema")
	}
	if parsed["title"] != "Catalog Configuration" {
		t.Errorf("title = %v, want Catalog Configuration", parsed["title"])
	}
	if !strings.HasPrefix(jsonStr, "{") || !strings.Contains(jsonStr, "\n") {
		t.Error("SchemaJSON() should be indented JSON")
	}
}
