package structuredoutput

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

// Schema describes the shape Validate checks a decoded JSON value against
// (§4.4 steps 3-4). It is deliberately far smaller than a general JSON
// Schema: the spec only needs required-field presence, enum coercion, and
// the list-wrapping special case.
type Schema struct {
	// RequiredFields that must be present (and non-null) on an object.
	RequiredFields []string
	// EnumFields restricts a field's value to a set, case-insensitively;
	// a value outside the set is coerced via substring match, then the
	// declared Defaults entry for that field.
	EnumFields map[string][]string
	// Defaults is the fallback value for an EnumFields entry that can't
	// be coerced by exact/case-insensitive/substring match.
	Defaults map[string]string
	// ListField names the single field a bare top-level JSON array should
	// be wrapped into when the schema expects an object (§4.4 step 3).
	ListField string
	// JQFilter, when set, is run over the decoded value before
	// validation — lets a node pull a nested field (e.g. ".result.todos")
	// out of a response shaped differently than the flat schema expects.
	JQFilter string
}

// Validate applies Schema to value (typically structuredoutput.Extract's
// result), returning the validated/coerced object and any validation
// errors found. A non-empty error list means the caller should issue the
// one correction retry the spec allows (§4.4 step 5).
func Validate(value any, schema Schema) (map[string]any, []string) {
	if schema.JQFilter != "" {
		if filtered, ok := applyJQ(value, schema.JQFilter); ok {
			value = filtered
		}
	}

	if list, ok := value.([]any); ok && schema.ListField != "" {
		value = map[string]any{schema.ListField: list}
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, []string{fmt.Sprintf("expected a JSON object, got %T", value)}
	}

	var errs []string
	for _, field := range schema.RequiredFields {
		if v, present := obj[field]; !present || v == nil {
			errs = append(errs, fmt.Sprintf("missing required field: %s", field))
		}
	}

	for field, allowed := range schema.EnumFields {
		raw, present := obj[field]
		if !present {
			continue
		}
		str, ok := raw.(string)
		if !ok {
			continue
		}
		coerced, ok := coerceEnum(str, allowed)
		if !ok {
			if def, hasDefault := schema.Defaults[field]; hasDefault {
				coerced = def
			} else {
				errs = append(errs, fmt.Sprintf("field %s: %q is not one of %v", field, str, allowed))
				continue
			}
		}
		obj[field] = coerced
	}

	return obj, errs
}

// coerceEnum matches value against allowed by exact match, then
// case-insensitive match, then substring containment, in that order
// (§4.4 step 4).
func coerceEnum(value string, allowed []string) (string, bool) {
	for _, a := range allowed {
		if value == a {
			return a, true
		}
	}
	lower := strings.ToLower(value)
	for _, a := range allowed {
		if strings.ToLower(a) == lower {
			return a, true
		}
	}
	for _, a := range allowed {
		if strings.Contains(lower, strings.ToLower(a)) {
			return a, true
		}
	}
	return "", false
}

// applyJQ runs filter over value via gojq, returning the first emitted
// result. A query producing no output, or an error value, is reported as
// a miss rather than panicking the caller.
func applyJQ(value any, filter string) (any, bool) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, false
	}

	// gojq works over plain JSON-decoded values; round-trip through
	// encoding/json normalizes json.Number back to float64/string so gojq
	// doesn't choke on Decoder.UseNumber()'s output.
	normalized, err := normalizeForJQ(value)
	if err != nil {
		return nil, false
	}

	iter := query.Run(normalized)
	v, ok := iter.Next()
	if !ok {
		return nil, false
	}
	if _, isErr := v.(error); isErr {
		return nil, false
	}
	return v, true
}

func normalizeForJQ(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
