package structuredoutput

import (
	"context"
	"fmt"
	"strings"
)

// InvokeFunc calls the model with a prompt and returns its raw text.
// Supplied by the node so this package stays independent of
// pkg/executor.ModelAdapter.
type InvokeFunc func(ctx context.Context, prompt string) (string, error)

// RequestJSON augments prompt with a schema instruction block, invokes
// the model, extracts and validates the result, and — on failure — issues
// exactly one correction request carrying the prior response and the
// validation errors before giving up (§4.4 step 5).
func RequestJSON(ctx context.Context, invoke InvokeFunc, schema Schema, prompt string) (map[string]any, error) {
	augmented := prompt + "\n\n" + instructionBlock(schema)

	raw, err := invoke(ctx, augmented)
	if err != nil {
		return nil, fmt.Errorf("structuredoutput: invoke: %w", err)
	}

	obj, errs := extractAndValidate(raw, schema)
	if len(errs) == 0 {
		return obj, nil
	}

	correction := fmt.Sprintf(
		"Your previous response did not match the required format.\nPrevious response:\n%s\n\nValidation errors:\n- %s\n\nReply again with corrected JSON only.",
		raw, strings.Join(errs, "\n- "),
	)
	raw2, err := invoke(ctx, correction)
	if err != nil {
		return nil, fmt.Errorf("structuredoutput: correction invoke: %w", err)
	}

	obj2, errs2 := extractAndValidate(raw2, schema)
	if len(errs2) > 0 {
		return nil, fmt.Errorf("structuredoutput: validation failed after correction retry: %s", strings.Join(errs2, "; "))
	}
	return obj2, nil
}

func extractAndValidate(raw string, schema Schema) (map[string]any, []string) {
	value, err := Extract(raw)
	if err != nil {
		return nil, []string{err.Error()}
	}
	return Validate(value, schema)
}

func instructionBlock(schema Schema) string {
	var b strings.Builder
	b.WriteString("Respond with a single JSON object only, no prose, no markdown fences.")
	if len(schema.RequiredFields) > 0 {
		fmt.Fprintf(&b, " Required fields: %s.", strings.Join(schema.RequiredFields, ", "))
	}
	for field, allowed := range schema.EnumFields {
		fmt.Fprintf(&b, " Field %q must be one of: %s.", field, strings.Join(allowed, ", "))
	}
	return b.String()
}
