package finagent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaResource is the in-memory location each compiled tool schema is registered under.
const schemaResource = "tool.json"

var errNilSchema = errors.New("schema reflection returned nil")

// generateSchema produces a JSON Schema map and a compiled validator for type T.
// It is called once when building a Tool. strict sets additionalProperties: false
// and marks every property required (OpenAI Structured Outputs).
func generateSchema[T any](strict bool) (map[string]any, *sjsonschema.Schema, error) {
	schema, err := reflectSchema(reflect.TypeFor[T]())
	if err != nil {
		return nil, nil, err
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, nil, err
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(data, &schemaMap); err != nil {
		return nil, nil, err
	}
	enrichSchemaFromStructTags(schemaMap, reflect.TypeFor[T]())
	if strict {
		applyStrictMode(schemaMap)
	}
	stripSchemaIDs(schemaMap)
	compiled, err := compileRawSchema(schemaMap)
	if err != nil {
		return nil, nil, err
	}
	return schemaMap, compiled, nil
}

// reflectSchema inlines the schema of typ. ExpandedStruct looks the root up by type
// name, so unnamed types (anonymous structs) are reflected without it.
func reflectSchema(typ reflect.Type) (schema *jsonschema.Schema, err error) {
	defer func() {
		if p := recover(); p != nil {
			schema, err = nil, fmt.Errorf("reflect %s: %v", typ, p)
		}
	}()
	named := typ
	if named.Kind() == reflect.Pointer {
		named = named.Elem()
	}
	r := &jsonschema.Reflector{
		ExpandedStruct: named.Name() != "",
		DoNotReference: true,
	}
	schema = r.ReflectFromType(typ)
	if schema == nil {
		return nil, errNilSchema
	}
	return schema, nil
}

// enrichSchemaFromStructTags adds description and enum from plain struct tags to root-level properties.
// typ may be a pointer; json tag (first part before comma) is used to match property keys.
// The enum tag is comma separated, so values may contain spaces ("6 months").
func enrichSchemaFromStructTags(schemaMap map[string]any, typ reflect.Type) {
	if schemaMap == nil || typ == nil {
		return
	}
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return
	}
	props, ok := schemaMap["properties"].(map[string]any)
	if !ok || len(props) == 0 {
		return
	}
	jsonToField := make(map[string]reflect.StructField, typ.NumField())
	for i := range typ.NumField() {
		field := typ.Field(i)
		jsonTag := strings.Split(field.Tag.Get("json"), ",")[0]
		if jsonTag == "" || jsonTag == "-" {
			continue
		}
		jsonToField[jsonTag] = field
	}
	for key, val := range props {
		prop, ok := val.(map[string]any)
		if !ok {
			continue
		}
		field, ok := jsonToField[key]
		if !ok {
			continue
		}
		if desc := field.Tag.Get("description"); desc != "" {
			prop["description"] = desc
		}
		if enumStr := field.Tag.Get("enum"); enumStr != "" {
			parts := strings.Split(enumStr, ",")
			enum := make([]any, len(parts))
			for i, p := range parts {
				enum[i] = strings.TrimSpace(p)
			}
			prop["enum"] = enum
		}
	}
}

// walkSchema recursively visits every map node in the schema tree (including $defs and definitions).
func walkSchema(schemaMap map[string]any, visit func(map[string]any)) {
	if schemaMap == nil {
		return
	}
	visit(schemaMap)
	for _, val := range schemaMap {
		switch v := val.(type) {
		case map[string]any:
			walkSchema(v, visit)
		case []any:
			for _, item := range v {
				if m2, ok := item.(map[string]any); ok {
					walkSchema(m2, visit)
				}
			}
		}
	}
}

// applyStrictMode sets additionalProperties: false for every object in the schema
// and lists all of its properties as required.
func applyStrictMode(schemaMap map[string]any) {
	walkSchema(schemaMap, func(n map[string]any) {
		props, isObj := n["properties"].(map[string]any)
		if !isObj {
			return
		}
		n["additionalProperties"] = false
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		required := make([]any, len(keys))
		for i, k := range keys {
			required[i] = k
		}
		if len(required) > 0 {
			n["required"] = required
		}
	})
}

// compileRawSchema compiles a raw JSON Schema map into a validator. The map is not mutated.
func compileRawSchema(schemaMap map[string]any) (*sjsonschema.Schema, error) {
	data, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, err
	}
	doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	c := sjsonschema.NewCompiler()
	if err := c.AddResource(schemaResource, doc); err != nil {
		return nil, err
	}
	return c.Compile(schemaResource)
}

// stripSchemaIDs removes $schema and $id so the map can be sent to the model as-is
// and resolution does not depend on them. Plain "id" keys are kept: they may be property names.
func stripSchemaIDs(schemaMap map[string]any) {
	delete(schemaMap, "$schema")
	walkSchema(schemaMap, func(n map[string]any) {
		if _, ok := n["$id"].(string); ok {
			delete(n, "$id")
		}
	})
}
