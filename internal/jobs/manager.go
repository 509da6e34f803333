package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager is the business-layer API the control plane calls into: it wraps
// a Store and fills in the bookkeeping fields (ID, timestamps) callers
// shouldn't have to set themselves.
type Manager struct {
	store  Store
	logger *zap.Logger
}

// NewManager builds a Manager over store.
func NewManager(store Store, logger *zap.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// Submit registers a new job in StatePending.
func (m *Manager) Submit(ctx context.Context, protocol Protocol, peerAddr, filePath string) (*Job, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("jobs: generating job id: %w", err)
	}

	now := time.Now()
	job := &Job{
		JobID:     id,
		Protocol:  protocol,
		PeerAddr:  peerAddr,
		FilePath:  filePath,
		State:     StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("jobs: creating job: %w", err)
	}
	m.logger.Info("job submitted",
		zap.String("job_id", id.String()),
		zap.String("protocol", string(protocol)),
		zap.String("peer_addr", peerAddr))
	return job, nil
}

// Get retrieves a job by ID.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	return m.store.Get(ctx, id)
}

// List returns jobs matching filter.
func (m *Manager) List(ctx context.Context, filter *Filter) ([]*Job, int, error) {
	return m.store.List(ctx, filter)
}

// Transition moves a job to a new state, recording errMsg when transitioning
// to StateFailed (pass "" otherwise).
func (m *Manager) Transition(ctx context.Context, id uuid.UUID, state State, errMsg string) error {
	job, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	job.State = state
	job.Err = errMsg
	job.UpdatedAt = time.Now()
	if err := m.store.Update(ctx, job); err != nil {
		return fmt.Errorf("jobs: updating job %s: %w", id.String(), err)
	}
	m.logger.Debug("job transitioned", zap.String("job_id", id.String()), zap.Stringer("state", state))
	return nil
}

// RecordProgress updates the bytes-moved counter without changing state.
func (m *Manager) RecordProgress(ctx context.Context, id uuid.UUID, bytesMoved uint64) error {
	job, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	job.BytesMoved = bytesMoved
	job.UpdatedAt = time.Now()
	return m.store.Update(ctx, job)
}
