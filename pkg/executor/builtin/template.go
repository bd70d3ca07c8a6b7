// Package builtin provides the node types registered by default: the
// LLM-driven conversation nodes, the hard-path TODO planner, memory and
// transcript bookkeeping, the resilience guards, and generic routing/state
// nodes. Each file owns one node type and is grounded on the teacher's
// pkg/executor/builtin executors, adapted from the teacher's generic
// any-in/any-out Execute contract to the typed State/StateDelta contract.
package builtin

import "strings"

// Substitute replaces every {fieldName} placeholder in tmpl with the
// matching entry of fields. A placeholder with no matching key, or an
// unterminated "{", is left in the output verbatim — the node falls back
// to the raw template rather than failing the node (§4.3 LLM Call).
//
// This is a hand-written scanner rather than regexp: placeholders are a
// closed, predictable shape, and a scanner keeps the substitution rule
// exact without pulling in a dependency it doesn't need.
func Substitute(tmpl string, fields map[string]string) string {
	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); {
		c := tmpl[i]
		if c != '{' {
			b.WriteByte(c)
			i++
			continue
		}
		end := strings.IndexByte(tmpl[i+1:], '}')
		if end < 0 {
			b.WriteString(tmpl[i:])
			break
		}
		name := tmpl[i+1 : i+1+end]
		if val, ok := fields[name]; ok {
			b.WriteString(val)
		} else {
			b.WriteString(tmpl[i : i+end+2])
		}
		i += end + 2
	}
	return b.String()
}
