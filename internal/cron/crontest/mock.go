// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"sync"
	"time"

	"github.com/flemzord/ragraft/internal/cron"
)

// MockJob is a configurable cron.Job.
type MockJob struct {
	NameVal     string
	ScheduleVal string
	RunFunc     func(ctx context.Context) error

	mu    sync.Mutex
	calls int
}

var _ cron.Job = (*MockJob)(nil)

// Name implements cron.Job.
func (m *MockJob) Name() string { return m.NameVal }

// Schedule implements cron.Job.
func (m *MockJob) Schedule() string { return m.ScheduleVal }

// Run counts the call and delegates to RunFunc when set.
func (m *MockJob) Run(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return nil
}

// CallCount returns how many times Run was called.
func (m *MockJob) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockPruner is a cron.QuestionPruner that records cutoffs.
type MockPruner struct {
	PruneFunc func(before time.Time) (int64, error)

	mu      sync.Mutex
	cutoffs []time.Time
}

var _ cron.QuestionPruner = (*MockPruner)(nil)

// PruneQuestions implements cron.QuestionPruner.
func (m *MockPruner) PruneQuestions(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	m.cutoffs = append(m.cutoffs, before)
	m.mu.Unlock()
	if m.PruneFunc != nil {
		return m.PruneFunc(before)
	}
	return 0, nil
}

// Cutoffs returns every cutoff passed to PruneQuestions.
func (m *MockPruner) Cutoffs() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.cutoffs...)
}
