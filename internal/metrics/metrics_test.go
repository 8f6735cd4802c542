package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncTaskResult_NormalizesLabels(t *testing.T) {
	before := testutil.ToFloat64(taskResultsTotal.WithLabelValues("completed", "webhook"))

	IncTaskResult(" Completed ", "WEBHOOK")

	after := testutil.ToFloat64(taskResultsTotal.WithLabelValues("completed", "webhook"))
	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, got %v", after-before)
	}
}

func TestSetWorkerQueueDepth(t *testing.T) {
	SetWorkerQueueDepth(2, 7)

	if got := testutil.ToFloat64(workerQueueDepth.WithLabelValues("2")); got != 7 {
		t.Errorf("expected 7, got %v", got)
	}
}

func TestMustRegister_Once(t *testing.T) {
	// Повторный вызов не должен паниковать из-за повторной регистрации
	MustRegister()
	MustRegister()
}
