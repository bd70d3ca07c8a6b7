// Package structuredoutput implements the spec's layered JSON extraction
// and schema validation helper (§4.4): a model response passes through
// whole-JSON parse, then fenced-block extraction, then a hand-written
// bracket-tracking scan, before falling back to repairing near-valid JSON
// via github.com/kaptinlin/jsonrepair. Grounded on the teacher's
// structured-output plumbing (pkg/models.LLMResponseFormat/LLMJSONSchema
// in pkg/models/llm.go, and the JSON marshal/unmarshal idiom in
// pkg/executor/builtin/adapter_json.go), extended with the repair pass
// and github.com/itchyny/gojq field extraction pulled in from the rest of
// the retrieval pack (leofalp-aigo uses jsonrepair for the same purpose).
package structuredoutput

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Extract pulls the first parseable JSON value out of raw model output
// (§4.4 step 2):
//  1. try the whole trimmed string as JSON;
//  2. find the first ```json fenced block and try that;
//  3. bracket-tracking scan for the first balanced {...} or [...] that
//     parses, correctly skipping over escaped quotes and nested objects;
//  4. as a last resort, run jsonrepair over the whole string and parse
//     the result (handles trailing commas, unquoted keys, truncation).
func Extract(raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)

	if v, err := parseJSON(trimmed); err == nil {
		return v, nil
	}

	if block, ok := fencedJSONBlock(trimmed); ok {
		if v, err := parseJSON(block); err == nil {
			return v, nil
		}
	}

	if block, ok := scanBalanced(trimmed); ok {
		if v, err := parseJSON(block); err == nil {
			return v, nil
		}
	}

	repaired, err := jsonrepair.JSONRepair(trimmed)
	if err == nil {
		if v, perr := parseJSON(repaired); perr == nil {
			return v, nil
		}
	}

	return nil, fmt.Errorf("structuredoutput: no parseable JSON found in response")
}

func parseJSON(s string) (any, error) {
	var v any
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// fencedJSONBlock returns the contents of the first ```json ... ``` fence.
func fencedJSONBlock(s string) (string, bool) {
	const openMarker = "```json"
	start := strings.Index(s, openMarker)
	if start < 0 {
		// tolerate a bare ``` fence with no language tag
		start = strings.Index(s, "```")
		if start < 0 {
			return "", false
		}
		start += len("```")
	} else {
		start += len(openMarker)
	}

	end := strings.Index(s[start:], "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(s[start : start+end]), true
}

// scanBalanced finds the first balanced {...} or [...] span in s, tracking
// string literals (and their escapes) so a brace inside a quoted value
// never throws off the depth count.
func scanBalanced(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '{' && c != '[' {
			continue
		}
		if span, ok := balancedSpanFrom(s, i); ok {
			return span, true
		}
	}
	return "", false
}

func balancedSpanFrom(s string, start int) (string, bool) {
	open := s[start]
	close := byte('}')
	if open == '[' {
		close = ']'
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
