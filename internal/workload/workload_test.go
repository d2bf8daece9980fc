package workload

import (
	"strings"
	"testing"
	"time"

	"cluster-nemesis/internal/config"
	"cluster-nemesis/internal/logging"
)

func testWorkloadConfig() config.WorkloadConfig {
	return config.WorkloadConfig{
		Addr:         "localhost:6379",
		Concurrency:  2,
		KeySpace:     100,
		WriteRatio:   0.5,
		OpTimeout:    time.Second,
		MaxErrorRate: 0.05,
	}
}

func TestVerifyFailsWithoutOperations(t *testing.T) {
	runner := NewRunner(testWorkloadConfig(), logging.NewTestLogger())
	defer runner.Close()

	if err := runner.Verify(); err == nil {
		t.Error("Expected Verify to fail when no operations ran")
	}
}

func TestVerifyAgainstErrorRate(t *testing.T) {
	runner := NewRunner(testWorkloadConfig(), logging.NewTestLogger())
	defer runner.Close()

	runner.ops.Store(1000)
	runner.errors.Store(10)
	if err := runner.Verify(); err != nil {
		t.Errorf("Error rate 0.01 is under the 0.05 threshold, got %v", err)
	}

	runner.errors.Store(100)
	err := runner.Verify()
	if err == nil {
		t.Fatal("Error rate 0.1 should exceed the 0.05 threshold")
	}
	if !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("Unexpected error text: %v", err)
	}
}

func TestSummary(t *testing.T) {
	runner := NewRunner(testWorkloadConfig(), logging.NewTestLogger())
	defer runner.Close()

	runner.ops.Store(200)
	runner.errors.Store(50)

	summary := runner.Summary()
	if summary.Operations != 200 {
		t.Errorf("Expected 200 operations, got %d", summary.Operations)
	}
	if summary.Errors != 50 {
		t.Errorf("Expected 50 errors, got %d", summary.Errors)
	}
	if summary.ErrorRate != 0.25 {
		t.Errorf("Expected error rate 0.25, got %f", summary.ErrorRate)
	}
}
