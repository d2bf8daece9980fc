// Package workload runs a background read/write stress load against the
// cluster under test while disruptions are in flight, so availability impact
// is observable and verifiable.
package workload

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"cluster-nemesis/internal/config"
	"cluster-nemesis/internal/logging"
)

// Runner drives concurrent workers against the cluster's client endpoint.
type Runner struct {
	config config.WorkloadConfig
	client *redis.Client
	logger *logging.Logger

	ops    atomic.Int64
	errors atomic.Int64
}

// Summary aggregates workload counters for verification.
type Summary struct {
	Operations int64   `json:"operations"`
	Errors     int64   `json:"errors"`
	ErrorRate  float64 `json:"error_rate"`
}

func NewRunner(cfg config.WorkloadConfig, logger *logging.Logger) *Runner {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Runner{
		config: cfg,
		client: client,
		logger: logger.WithComponent("workload"),
	}
}

// Ping verifies the client endpoint is reachable.
func (r *Runner) Ping(ctx context.Context) error {
	if _, err := r.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("workload endpoint %s not reachable: %w", r.config.Addr, err)
	}
	return nil
}

// Run streams operations until ctx is cancelled. Individual operation
// failures are counted, not propagated: the point of the workload is to
// keep going while the cluster is being disrupted.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("starting workload", "addr", r.config.Addr, "concurrency", r.config.Concurrency)

	var wg sync.WaitGroup
	for i := 0; i < r.config.Concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r.worker(ctx, worker)
		}(i)
	}
	wg.Wait()

	summary := r.Summary()
	r.logger.Info("workload finished",
		"operations", summary.Operations,
		"errors", summary.Errors,
		"error_rate", summary.ErrorRate,
	)
}

func (r *Runner) worker(ctx context.Context, worker int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)))

	for ctx.Err() == nil {
		key := fmt.Sprintf("nemesis:load:%d", rng.Intn(r.config.KeySpace))

		opCtx, cancel := context.WithTimeout(ctx, r.config.OpTimeout)
		var err error
		if rng.Float64() < r.config.WriteRatio {
			err = r.client.Set(opCtx, key, time.Now().UnixNano(), 0).Err()
		} else {
			err = r.client.Get(opCtx, key).Err()
			if err == redis.Nil {
				err = nil
			}
		}
		cancel()

		r.ops.Add(1)
		if err != nil && ctx.Err() == nil {
			r.errors.Add(1)
		}
	}
}

// Summary returns the counters observed so far.
func (r *Runner) Summary() Summary {
	ops := r.ops.Load()
	errors := r.errors.Load()
	summary := Summary{Operations: ops, Errors: errors}
	if ops > 0 {
		summary.ErrorRate = float64(errors) / float64(ops)
	}
	return summary
}

// Verify fails when the observed error rate exceeds the configured
// threshold. Intended to be called once after the run finishes.
func (r *Runner) Verify() error {
	summary := r.Summary()
	if summary.Operations == 0 {
		return fmt.Errorf("workload executed no operations")
	}
	if summary.ErrorRate > r.config.MaxErrorRate {
		return fmt.Errorf("workload error rate %.4f exceeds maximum %.4f (%d/%d operations failed)",
			summary.ErrorRate, r.config.MaxErrorRate, summary.Errors, summary.Operations)
	}
	return nil
}

// Close releases the client.
func (r *Runner) Close() error {
	return r.client.Close()
}
