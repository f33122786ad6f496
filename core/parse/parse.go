package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseStringAs converts raw model output into a value of type T.
//
// Primitive targets (string, bool, integers, floats) are parsed directly,
// falling back to unwrapping the {"type": ..., "value": ...} envelope that
// models sometimes emit in place of a bare value. Complex targets (structs,
// maps, slices) are JSON-unmarshaled; on failure the content is run through
// jsonrepair and, as a last resort, schema-style envelopes are unwrapped
// field by field. A markdown code fence around the payload is stripped
// before any of this.
func ParseStringAs[T any](content string) (T, error) {
	var result T
	value := reflect.ValueOf(&result).Elem()

	switch reflect.TypeFor[T]().Kind() {
	case reflect.String:
		candidate := extractCandidate(content)
		if strings.HasPrefix(strings.TrimSpace(candidate), "{") {
			if unwrapped, err := unwrapEnvelopeValue(strings.TrimSpace(candidate)); err == nil {
				value.SetString(unwrapped)
				return result, nil
			}
		}
		value.SetString(candidate)
		return result, nil

	case reflect.Bool:
		parsed, err := parsePrimitive(content, strconv.ParseBool)
		if err != nil {
			return result, fmt.Errorf("parsing content as bool: %w", err)
		}
		value.SetBool(parsed)
		return result, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		parsed, err := parsePrimitive(content, func(s string) (int64, error) {
			return strconv.ParseInt(s, 10, 64)
		})
		if err != nil {
			return result, fmt.Errorf("parsing content as int: %w", err)
		}
		value.SetInt(parsed)
		return result, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		parsed, err := parsePrimitive(content, func(s string) (uint64, error) {
			return strconv.ParseUint(s, 10, 64)
		})
		if err != nil {
			return result, fmt.Errorf("parsing content as uint: %w", err)
		}
		value.SetUint(parsed)
		return result, nil

	case reflect.Float32, reflect.Float64:
		parsed, err := parsePrimitive(content, func(s string) (float64, error) {
			return strconv.ParseFloat(s, 64)
		})
		if err != nil {
			return result, fmt.Errorf("parsing content as float: %w", err)
		}
		value.SetFloat(parsed)
		return result, nil

	default:
		if err := unmarshalLenient(content, &result); err != nil {
			return result, err
		}
		return result, nil
	}
}

// parsePrimitive runs the converter on the extracted candidate, retrying on
// the envelope value when the candidate is a schema-style envelope.
func parsePrimitive[V any](content string, convert func(string) (V, error)) (V, error) {
	candidate := strings.TrimSpace(extractCandidate(content))

	parsed, err := convert(candidate)
	if err == nil {
		return parsed, nil
	}

	unwrapped, unwrapErr := unwrapEnvelopeValue(candidate)
	if unwrapErr != nil {
		var zero V
		return zero, err
	}
	return convert(unwrapped)
}

// unmarshalLenient unmarshals model output into target, repairing malformed
// JSON and unwrapping schema-style envelopes before giving up. The error of
// the strict attempt is the one reported.
func unmarshalLenient(content string, target any) error {
	candidate := strings.TrimSpace(extractCandidate(content))

	strictErr := json.Unmarshal([]byte(candidate), target)
	if strictErr == nil {
		return nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(candidate)
	if repairErr != nil {
		return fmt.Errorf("unmarshaling content: %w (repair failed: %v)", strictErr, repairErr)
	}
	if err := json.Unmarshal([]byte(repaired), target); err == nil {
		return nil
	}

	unwrapped, unwrapErr := unwrapEnvelopeTree(repaired)
	if unwrapErr != nil {
		return fmt.Errorf("unmarshaling content: %w", strictErr)
	}
	if err := json.Unmarshal([]byte(unwrapped), target); err != nil {
		return fmt.Errorf("unmarshaling content: %w", strictErr)
	}
	return nil
}

// extractCandidate strips a surrounding markdown code fence, with or
// without a language tag, and returns the fence body. Content without a
// complete fence is returned unchanged.
func extractCandidate(content string) string {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < 6 || !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") {
		return content
	}

	body := strings.TrimSuffix(strings.TrimPrefix(trimmed, "```"), "```")
	if newline := strings.IndexByte(body, '\n'); newline >= 0 && !strings.ContainsAny(body[:newline], "{[\"") {
		// The first line is a language tag such as "json".
		body = body[newline+1:]
	}
	return strings.TrimSpace(body)
}

var errNotEnvelope = errors.New("not a type/value envelope")

// unwrapEnvelopeValue extracts the value of a {"type": ..., "value": ...}
// envelope and returns its string form.
func unwrapEnvelopeValue(content string) (string, error) {
	var envelope map[string]any
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return "", err
	}
	if _, hasType := envelope["type"]; !hasType || len(envelope) != 2 {
		return "", errNotEnvelope
	}
	value, hasValue := envelope["value"]
	if !hasValue {
		return "", errNotEnvelope
	}

	switch v := value.(type) {
	case string:
		return v, nil
	case float64, bool:
		return fmt.Sprintf("%v", v), nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
}

// unwrapEnvelopeTree rewrites a JSON document, replacing every
// {"type": ..., "value": ...} envelope with its value. Models confuse
// schema definitions with data often enough for this to be worth a pass.
func unwrapEnvelopeTree(content string) (string, error) {
	var data any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return "", err
	}
	unwrapped, err := json.Marshal(unwrapAny(data))
	if err != nil {
		return "", err
	}
	return string(unwrapped), nil
}

func unwrapAny(data any) any {
	switch v := data.(type) {
	case map[string]any:
		if _, hasType := v["type"]; hasType && len(v) == 2 {
			if value, hasValue := v["value"]; hasValue {
				return unwrapAny(value)
			}
		}
		unwrapped := make(map[string]any, len(v))
		for key, item := range v {
			unwrapped[key] = unwrapAny(item)
		}
		return unwrapped

	case []any:
		unwrapped := make([]any, len(v))
		for i, item := range v {
			unwrapped[i] = unwrapAny(item)
		}
		return unwrapped

	default:
		return data
	}
}
