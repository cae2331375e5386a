package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ActivityRepository interface {
	Insert(ctx context.Context, entry *domain.ActivityLog) error
	Recent(ctx context.Context, limit int, entryType string) ([]*domain.ActivityLog, error)
}

// ActivityEntry is what callers hand to Record.
type ActivityEntry struct {
	Actor        domain.Actor
	Action       domain.ActivityAction
	ResourceType string
	ResourceID   string
	Details      map[string]any
}

type ActivityService struct {
	repo    ActivityRepository // nil: entries only go to the log
	metrics *metrics.Collector
	log     *zap.Logger
	entries chan *domain.ActivityLog
	done    chan struct{}

	// mu guards closed; Record holds it shared while sending so Shutdown
	// cannot close entries under a sender.
	mu     sync.RWMutex
	closed bool
}

const activityBufferSize = 10_000

func NewActivityService(repo ActivityRepository, m *metrics.Collector, log *zap.Logger) *ActivityService {
	return newActivityService(repo, m, log, activityBufferSize)
}

func newActivityService(repo ActivityRepository, m *metrics.Collector, log *zap.Logger, size int) *ActivityService {
	svc := &ActivityService{
		repo:    repo,
		metrics: m,
		log:     log,
		entries: make(chan *domain.ActivityLog, size),
		done:    make(chan struct{}),
	}
	go svc.worker()
	return svc
}

// Record enqueues an entry for async persistence. A full buffer drops the
// entry with a warning.
func (s *ActivityService) Record(ctx context.Context, entry ActivityEntry) {
	al := &domain.ActivityLog{
		Type:         fmt.Sprintf("%s.%s", entry.ResourceType, entry.Action),
		OccurredAt:   time.Now().UTC(),
		ActorRole:    entry.Actor.Role,
		IPAddress:    entry.Actor.IP,
		RequestID:    entry.Actor.RequestID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Details:      entry.Details,
	}
	if entry.Actor.ID != uuid.Nil {
		al.ActorID = entry.Actor.ID.String()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.metrics.ActivityBufferDropped.Inc()
		s.log.Warn("activity service stopped, dropping entry",
			zap.String("type", al.Type),
			zap.String("resource_id", al.ResourceID),
		)
		return
	}

	select {
	case s.entries <- al:
	default:
		s.metrics.ActivityBufferDropped.Inc()
		s.log.Warn("activity log buffer full, dropping entry",
			zap.String("type", al.Type),
			zap.String("resource_id", al.ResourceID),
		)
	}
}

// Recent returns the newest entries, optionally filtered by type.
func (s *ActivityService) Recent(ctx context.Context, limit int, entryType string) ([]*domain.ActivityLog, error) {
	if s.repo == nil {
		return []*domain.ActivityLog{}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	logs, err := s.repo.Recent(ctx, limit, entryType)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	return logs, nil
}

// Shutdown stops accepting entries and waits for the worker to drain the
// buffer. Entries recorded afterwards are dropped. Safe to call twice.
func (s *ActivityService) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.entries)
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		s.log.Warn("activity service shutdown timed out; some entries may be lost")
	}
}

func (s *ActivityService) worker() {
	defer close(s.done)
	for entry := range s.entries {
		if s.repo == nil {
			s.log.Info("activity",
				zap.String("type", entry.Type),
				zap.String("actor_id", entry.ActorID),
				zap.String("resource_id", entry.ResourceID),
				zap.String("request_id", entry.RequestID),
			)
			s.metrics.ActivityEntriesTotal.Inc()
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Insert(ctx, entry); err != nil {
			s.log.Error("failed to persist activity log", zap.Error(err), zap.String("type", entry.Type))
		} else {
			s.metrics.ActivityEntriesTotal.Inc()
		}
		cancel()
	}
}
