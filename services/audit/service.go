// Package audit keeps an asynchronous trail of auth events (register,
// login, logout, rejected tokens, account changes) in the store.
// Recording never blocks a request and never fails one.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/llmgate/llmgate/internal/observability/metrics"
	"github.com/llmgate/llmgate/models"
	"github.com/llmgate/llmgate/services"
	"github.com/llmgate/llmgate/store"
)

// Config holds configuration for the audit Service.
type Config struct {
	BufferSize  int           // size of the event buffer channel
	WorkerCount int           // number of concurrent writers
	EventTTL    time.Duration // how long events stay readable
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BufferSize:  1024,
		WorkerCount: 2,
		EventTTL:    30 * 24 * time.Hour,
	}
}

// Service persists audit events through a buffered channel and a small
// worker pool, so the hot auth path never waits on the store.
type Service struct {
	kv          store.KV
	logger      *zap.Logger
	events      chan *models.AuditEvent
	ttl         time.Duration
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	started     bool
	mu          sync.Mutex
}

// NewService creates an audit Service. Zero config fields fall back to
// the defaults.
func NewService(kv store.KV, logger *zap.Logger, config Config) *Service {
	def := DefaultConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = def.BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = def.WorkerCount
	}
	if config.EventTTL <= 0 {
		config.EventTTL = def.EventTTL
	}

	return &Service{
		kv:          kv,
		logger:      logger,
		events:      make(chan *models.AuditEvent, config.BufferSize),
		ttl:         config.EventTTL,
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
	}
}

// Start launches the background workers.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))
	return nil
}

// Stop drains pending events and stops the workers, waiting at most
// timeout for the queue to empty.
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.started = false
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.events)))
	close(s.events)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// Record enqueues an event without blocking. When the buffer is full or
// the service is stopped the event is dropped with a log line; callers
// never see an error from the trail.
func (s *Service) Record(event *models.AuditEvent) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	if !started {
		s.logger.Warn("audit service not running, dropping event",
			zap.String("action", string(event.Action)),
			zap.String("tenant_id", event.TenantID))
		metrics.ObserveAuditEvent(string(event.Action), "dropped")
		return
	}

	select {
	case s.events <- event:
		metrics.SetAuditQueueDepth(len(s.events))
	default:
		s.logger.Warn("audit buffer full, dropping event",
			zap.String("action", string(event.Action)),
			zap.String("tenant_id", event.TenantID))
		metrics.ObserveAuditEvent(string(event.Action), "dropped")
	}
}

// List returns a tenant's recorded events, newest first. Ids whose
// records have already expired are skipped.
func (s *Service) List(ctx context.Context, tenantID string) ([]*models.AuditEvent, error) {
	ids, err := s.kv.SMembers(ctx, store.AuditSetKey(tenantID))
	if err != nil {
		return nil, services.WrapInternal("failed to list audit events", err)
	}

	events := make([]*models.AuditEvent, 0, len(ids))
	for _, id := range ids {
		raw, err := s.kv.Get(ctx, store.AuditEventKey(tenantID, id))
		if err != nil {
			if err == store.ErrKeyNotFound {
				continue
			}
			return nil, services.WrapInternal("failed to load audit event", err)
		}

		var event models.AuditEvent
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			s.logger.Warn("skipping corrupt audit event",
				zap.String("tenant_id", tenantID),
				zap.String("event_id", id))
			continue
		}
		events = append(events, &event)
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].ID > events[j].ID
		}
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	return events, nil
}

func (s *Service) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.events {
		metrics.SetAuditQueueDepth(len(s.events))
		if err := s.persist(event); err != nil {
			metrics.ObserveAuditEvent(string(event.Action), "failed")
			s.logger.Error("failed to persist audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(event.Action)),
				zap.String("tenant_id", event.TenantID))
			continue
		}
		metrics.ObserveAuditEvent(string(event.Action), "recorded")
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

func (s *Service) persist(event *models.AuditEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	if err := s.kv.SetWithTTL(ctx, store.AuditEventKey(event.TenantID, event.ID), string(raw), s.ttl); err != nil {
		return fmt.Errorf("store audit event: %w", err)
	}
	if err := s.kv.SAdd(ctx, store.AuditSetKey(event.TenantID), event.ID); err != nil {
		return fmt.Errorf("index audit event: %w", err)
	}
	return nil
}

// Stats reports the service's runtime state.
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

// GetStats returns statistics about the audit service.
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.events),
		WorkerCount:   s.workerCount,
		Started:       s.started,
	}
}
