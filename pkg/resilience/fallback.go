package resilience

import "context"

// InvokeFunc calls the model adapter for a specific model name, returning
// its textual response. Retried per RetryPolicy; on exhaustion the ladder
// demotes to the next model and the policy's attempt budget resets for
// that rung (a slow model is given a fair shot before being abandoned).
type InvokeFunc func(ctx context.Context, model string) (string, error)

// Outcome is ResilientInvoke's success result.
type Outcome struct {
	Content  string
	Model    string
	Attempts int
	Demoted  bool
}

// ResilientInvoke retries call against currentModel per policy; if every
// attempt on a rung fails, it demotes to the next model in ladder and
// retries there, accumulating Attempts across rungs. ladder is the full
// ordered list of models to try, starting with currentModel itself (a
// ladder not containing currentModel has it prepended). Returns an error
// only once every rung is exhausted.
func ResilientInvoke(ctx context.Context, policy *RetryPolicy, ladder []string, currentModel string, call InvokeFunc) (Outcome, error) {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}

	rungs := buildLadder(ladder, currentModel)

	var lastErr error
	totalAttempts := 0
	for i, model := range rungs {
		var content string
		rungPolicy := *policy
		rungPolicy.OnRetry = func(attempt int, err error) {
			if policy.OnRetry != nil {
				policy.OnRetry(attempt, err)
			}
		}

		err := rungPolicy.Execute(ctx, func() error {
			totalAttempts++
			var callErr error
			content, callErr = call(ctx, model)
			return callErr
		})
		if err == nil {
			return Outcome{Content: content, Model: model, Attempts: totalAttempts, Demoted: i > 0}, nil
		}
		lastErr = err
	}

	return Outcome{}, lastErr
}

// buildLadder ensures currentModel leads the ladder and removes duplicates
// past the first occurrence.
func buildLadder(ladder []string, currentModel string) []string {
	seen := map[string]bool{currentModel: true}
	rungs := []string{currentModel}
	for _, m := range ladder {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		rungs = append(rungs, m)
	}
	return rungs
}
