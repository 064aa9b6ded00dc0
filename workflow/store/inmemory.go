// Package store persists workflow reports keyed by session id.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/workflow"
)

var (
	_ workflow.ReportStore = (*InMemoryStore)(nil)
	_ workflow.ReportStore = (*RedisStore)(nil)
	_ workflow.ReportStore = (*PostgresStore)(nil)
	_ workflow.ReportStore = (*MongoStore)(nil)
)

// InMemoryStore keeps encoded reports in a map. Reports are copied on the way
// in and out so callers cannot mutate stored data.
type InMemoryStore struct {
	mu      sync.RWMutex
	reports map[string][]byte
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{reports: make(map[string][]byte)}
}

// Save implements workflow.ReportStore.
func (s *InMemoryStore) Save(ctx context.Context, report *workflow.Report) error {
	raw, err := encode(report)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.SessionID] = raw
	return nil
}

// Load implements workflow.ReportStore.
func (s *InMemoryStore) Load(ctx context.Context, sessionID string) (*workflow.Report, error) {
	s.mu.RLock()
	raw, ok := s.reports[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("report %s: %w", sessionID, errs.ErrNotFound)
	}
	return decode(raw)
}

// Delete removes a report.
func (s *InMemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reports, sessionID)
	return nil
}

// Count returns the number of stored reports.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

func encode(report *workflow.Report) ([]byte, error) {
	if report == nil || report.SessionID == "" {
		return nil, fmt.Errorf("%w: report must have a session id", errs.ErrInvalidInput)
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (*workflow.Report, error) {
	var report workflow.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}
