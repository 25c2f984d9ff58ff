package application

import (
	"sync"
	"time"

	"github.com/felixgeelhaar/auditor/pkg/domain"
)

// UsageService tracks runs and model token usage separately from the trail.
type UsageService struct {
	repo domain.WorkspaceRepository
	mu   sync.Mutex
}

var _ TokenRecorder = (*UsageService)(nil)

func NewUsageService(repo domain.WorkspaceRepository) *UsageService {
	return &UsageService{repo: repo}
}

// RecordRun counts a started audit run.
func (s *UsageService) RecordRun() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, err := s.load()
	if err != nil {
		return err
	}
	stats.TotalRuns++
	stats.LastRunAt = time.Now().UTC()
	return s.repo.UpdateUsage(*stats)
}

// RecordTokenUsage adds token counts for a provider. Judges call it
// concurrently.
func (s *UsageService) RecordTokenUsage(model string, inputTokens, outputTokens int) error {
	if inputTokens <= 0 && outputTokens <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, err := s.load()
	if err != nil {
		return err
	}
	if inputTokens > 0 {
		stats.ProviderStats[model+":input"] += inputTokens
	}
	if outputTokens > 0 {
		stats.ProviderStats[model+":output"] += outputTokens
	}
	return s.repo.UpdateUsage(*stats)
}

func (s *UsageService) Usage() (*domain.UsageStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// TotalTokens sums every provider counter.
func (s *UsageService) TotalTokens() (int, error) {
	stats, err := s.Usage()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, n := range stats.ProviderStats {
		total += n
	}
	return total, nil
}

func (s *UsageService) load() (*domain.UsageStats, error) {
	stats, err := s.repo.LoadUsage()
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = &domain.UsageStats{}
	}
	if stats.ProviderStats == nil {
		stats.ProviderStats = map[string]int{}
	}
	return stats, nil
}
