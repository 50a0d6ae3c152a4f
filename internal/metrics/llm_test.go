package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCompletion(t *testing.T) {
	before := testutil.ToFloat64(LLMRequestsTotal.WithLabelValues("test", "m1", "ok"))
	beforeErr := testutil.ToFloat64(LLMRequestsTotal.WithLabelValues("test", "m1", "error"))
	beforePrompt := testutil.ToFloat64(LLMTokensTotal.WithLabelValues("test", "m1", "prompt"))

	ObserveCompletion("test", "m1", 0.4, 120, 30, nil)
	ObserveCompletion("test", "m1", 0.1, 0, 0, errors.New("boom"))

	if got := testutil.ToFloat64(LLMRequestsTotal.WithLabelValues("test", "m1", "ok")) - before; got != 1 {
		t.Errorf("ok requests delta = %f, want 1", got)
	}
	if got := testutil.ToFloat64(LLMRequestsTotal.WithLabelValues("test", "m1", "error")) - beforeErr; got != 1 {
		t.Errorf("error requests delta = %f, want 1", got)
	}
	if got := testutil.ToFloat64(LLMTokensTotal.WithLabelValues("test", "m1", "prompt")) - beforePrompt; got != 120 {
		t.Errorf("prompt tokens delta = %f, want 120", got)
	}
}

func TestRegisterLLMMetrics_Idempotent(t *testing.T) {
	RegisterLLMMetrics()
	RegisterLLMMetrics()
}
