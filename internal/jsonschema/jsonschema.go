package jsonschema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Schema is a JSON Schema document, limited to the vocabulary accepted by
// structured-output response formats.
type Schema struct {
	Type                 string             `json:"type,omitempty"`
	Description          string             `json:"description,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Enum                 []any              `json:"enum,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`
	Ref                  string             `json:"$ref,omitempty"`
	Defs                 map[string]*Schema `json:"$defs,omitempty"`
}

// For derives a schema from T. Property names follow the json struct tags,
// and non-pointer fields without omitempty are listed as required. The
// jsonschema struct tag refines a field with description=, enum= (repeatable,
// converted to the field's type) and required. Self-referential types are
// emitted once under $defs and referenced from there.
func For[T any]() (*Schema, error) {
	g := &generator{
		building: map[reflect.Type]string{},
		cyclic:   map[reflect.Type]bool{},
		defs:     map[string]*Schema{},
	}
	schema, err := g.typeSchema(reflect.TypeFor[T](), true)
	if err != nil {
		return nil, err
	}
	if len(g.defs) > 0 {
		schema.Defs = g.defs
	}
	return schema, nil
}

type generator struct {
	building map[reflect.Type]string
	cyclic   map[reflect.Type]bool
	defs     map[string]*Schema
}

func (g *generator) typeSchema(t reflect.Type, isRoot bool) (*Schema, error) {
	switch t.Kind() {
	case reflect.Pointer:
		return g.typeSchema(t.Elem(), isRoot)
	case reflect.String:
		return &Schema{Type: "string"}, nil
	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}, nil
	case reflect.Slice, reflect.Array:
		items, err := g.typeSchema(t.Elem(), false)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "array", Items: items}, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map keys must be strings, got %s", t.Key())
		}
		values, err := g.typeSchema(t.Elem(), false)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "object", AdditionalProperties: values}, nil
	case reflect.Struct:
		return g.structSchema(t, isRoot)
	case reflect.Interface:
		// Unconstrained: matches any JSON value.
		return &Schema{}, nil
	default:
		return nil, fmt.Errorf("no schema for %s values", t.Kind())
	}
}

func (g *generator) structSchema(t reflect.Type, isRoot bool) (*Schema, error) {
	if name, ok := g.building[t]; ok {
		// The type references itself through an ancestor field. Point at the
		// definition the ancestor call registers once it finishes.
		g.cyclic[t] = true
		return &Schema{Ref: "#/$defs/" + name}, nil
	}
	name := defName(t)
	g.building[t] = name
	defer delete(g.building, t)

	schema := &Schema{Type: "object", Properties: map[string]*Schema{}}
	var required []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		propertyName, omitEmpty, skip := fieldJSONName(field)
		if skip {
			continue
		}

		fieldSchema, err := g.typeSchema(field.Type, false)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		requiredByTag, err := applyFieldTag(field, fieldSchema)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		schema.Properties[propertyName] = fieldSchema
		if requiredByTag || (field.Type.Kind() != reflect.Pointer && !omitEmpty) {
			required = append(required, propertyName)
		}
	}
	schema.Required = required

	if g.cyclic[t] {
		// Register a copy without $defs so the marshalled document stays
		// acyclic: references are leaves, never the schema itself.
		g.defs[name] = &Schema{Type: schema.Type, Properties: schema.Properties, Required: schema.Required}
		if !isRoot {
			return &Schema{Ref: "#/$defs/" + name}, nil
		}
	}
	return schema, nil
}

// fieldJSONName resolves the property name the encoding/json package would
// use for the field, along with its omitempty option.
func fieldJSONName(field reflect.StructField) (name string, omitEmpty, skip bool) {
	name = field.Name
	tag := field.Tag.Get("json")
	if tag == "" {
		return name, false, false
	}
	tagName, options, _ := strings.Cut(tag, ",")
	if tagName == "-" && options == "" {
		return "", false, true
	}
	if tagName != "" {
		name = tagName
	}
	return name, optionsContain(options, "omitempty"), false
}

func optionsContain(options, option string) bool {
	for options != "" {
		var current string
		current, options, _ = strings.Cut(options, ",")
		if current == option {
			return true
		}
	}
	return false
}

// applyFieldTag applies the jsonschema struct tag to an already generated
// field schema and reports whether the tag forces the field to be required.
// Tag values cannot contain commas or equals signs. Unknown keys are ignored,
// and $ref schemas only honor required.
func applyFieldTag(field reflect.StructField, schema *Schema) (bool, error) {
	tag := field.Tag.Get("jsonschema")
	if tag == "" {
		return false, nil
	}
	requiredByTag := false
	for _, item := range strings.Split(tag, ",") {
		key, value, hasValue := strings.Cut(item, "=")
		switch {
		case key == "required" && !hasValue:
			requiredByTag = true
		case key == "description" && hasValue && schema.Ref == "":
			schema.Description = value
		case key == "enum" && hasValue && schema.Ref == "":
			enumValue, err := parseEnumValue(field.Type, value)
			if err != nil {
				return false, err
			}
			schema.Enum = append(schema.Enum, enumValue)
		}
	}
	return requiredByTag, nil
}

func parseEnumValue(t reflect.Type, raw string) (any, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return raw, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("enum value %q is not an integer", raw)
		}
		return value, nil
	case reflect.Float32, reflect.Float64:
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("enum value %q is not a number", raw)
		}
		return value, nil
	case reflect.Bool:
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("enum value %q is not a boolean", raw)
		}
		return value, nil
	default:
		return nil, fmt.Errorf("enum is unsupported for %s fields", t.Kind())
	}
}

func defName(t reflect.Type) string {
	if t.Name() == "" {
		return "anonymous"
	}
	return strings.ToLower(t.Name())
}
