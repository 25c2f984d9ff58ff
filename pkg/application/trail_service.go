package application

import (
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/auditor/pkg/domain"
	"github.com/google/uuid"
)

// TrailService keeps a hash-chained record of what happened during the
// current run. Each run starts a fresh chain.
type TrailService struct {
	repo  domain.WorkspaceRepository
	mu    sync.Mutex
	runID string
}

var _ domain.TrailLogger = (*TrailService)(nil)

func NewTrailService(repo domain.WorkspaceRepository) *TrailService {
	return &TrailService{repo: repo}
}

// Begin discards the previous run's trail and tags later events with runID.
func (s *TrailService) Begin(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.ResetEvents(); err != nil {
		return err
	}
	s.runID = runID
	return nil
}

func (s *TrailService) Log(action string, actor string, metadata map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.repo.LoadEvents()
	if err != nil {
		return fmt.Errorf("failed to load trail: %w", err)
	}
	prevHash := ""
	if len(events) > 0 {
		prevHash = events[len(events)-1].Hash
	}

	event := domain.Event{
		ID:        uuid.New().String(),
		RunID:     s.runID,
		Timestamp: time.Now().UTC(),
		Action:    action,
		Actor:     actor,
		Metadata:  metadata,
		PrevHash:  prevHash,
	}
	event.Hash = event.CalculateHash()

	return s.repo.RecordEvent(event)
}

func (s *TrailService) Timeline() ([]domain.Event, error) {
	return s.repo.LoadEvents()
}

// Verify walks the chain and returns one message per broken link or
// tampered event.
func (s *TrailService) Verify() ([]string, error) {
	events, err := s.repo.LoadEvents()
	if err != nil {
		return nil, err
	}

	var violations []string
	lastHash := ""
	for i, e := range events {
		if e.PrevHash != lastHash {
			violations = append(violations, fmt.Sprintf("Event %d (%s): PrevHash mismatch. Trail broken.", i, e.ID))
		}
		if e.Hash != e.CalculateHash() {
			violations = append(violations, fmt.Sprintf("Event %d (%s): Content hash mismatch. Possible tampering.", i, e.ID))
		}
		lastHash = e.Hash
	}
	return violations, nil
}
