package service

import (
	"fmt"
	"log"
	"time"

	"github.com/yourusername/election-api/internal/domain/entity"
	"github.com/yourusername/election-api/internal/domain/repository"
	apperrors "github.com/yourusername/election-api/internal/pkg/errors"
)

const (
	resultsCacheTTL   = 30 * time.Second
	dashboardCacheTTL = 30 * time.Second
	catalogCacheTTL   = 5 * time.Minute
)

// ElectionService manages the election catalog (categories, positions,
// candidates) and the derived read models: tallies and the admin dashboard.
type ElectionService struct {
	categoryRepo  repository.CategoryRepository
	positionRepo  repository.PositionRepository
	candidateRepo repository.CandidateRepository
	voteRepo      repository.VoteRepository
	cacheRepo     repository.CacheRepository
}

func NewElectionService(
	categoryRepo repository.CategoryRepository,
	positionRepo repository.PositionRepository,
	candidateRepo repository.CandidateRepository,
	voteRepo repository.VoteRepository,
	cacheRepo repository.CacheRepository,
) (*ElectionService, error) {
	if categoryRepo == nil || positionRepo == nil || candidateRepo == nil {
		return nil, fmt.Errorf("catalog repositories are required")
	}
	if voteRepo == nil {
		return nil, fmt.Errorf("vote repository is required")
	}
	if cacheRepo == nil {
		return nil, fmt.Errorf("cache repository is required")
	}
	return &ElectionService{
		categoryRepo:  categoryRepo,
		positionRepo:  positionRepo,
		candidateRepo: candidateRepo,
		voteRepo:      voteRepo,
		cacheRepo:     cacheRepo,
	}, nil
}

// --- Categories ---

func (s *ElectionService) CreateCategory(category *entity.Category) error {
	if category.Name == "" {
		return fmt.Errorf("%w: category name is required", apperrors.ErrValidation)
	}
	if err := s.categoryRepo.Create(category); err != nil {
		return err
	}
	s.invalidateCatalog()
	return nil
}

func (s *ElectionService) GetCategory(id uint) (*entity.Category, error) {
	return s.categoryRepo.GetByIDWithPositions(id)
}

// ListCategories serves the public catalog, cached with a short TTL.
func (s *ElectionService) ListCategories() ([]entity.Category, error) {
	var cached []entity.Category
	if err := s.cacheRepo.GetJSON(repository.CacheKeyCategories, &cached); err == nil {
		return cached, nil
	}

	categories, err := s.categoryRepo.List()
	if err != nil {
		return nil, err
	}
	if err := s.cacheRepo.SetJSON(repository.CacheKeyCategories, categories, catalogCacheTTL); err != nil {
		log.Printf("[ElectionService] failed to cache categories: %v", err)
	}
	return categories, nil
}

func (s *ElectionService) UpdateCategory(category *entity.Category) error {
	if category.Name == "" {
		return fmt.Errorf("%w: category name is required", apperrors.ErrValidation)
	}
	if err := s.categoryRepo.Update(category); err != nil {
		return err
	}
	s.invalidateCatalog()
	return nil
}

func (s *ElectionService) DeleteCategory(id uint) error {
	if err := s.categoryRepo.Delete(id); err != nil {
		return err
	}
	s.invalidateCatalog()
	return nil
}

// --- Positions ---

func (s *ElectionService) CreatePosition(position *entity.Position) error {
	if position.Name == "" {
		return fmt.Errorf("%w: position name is required", apperrors.ErrValidation)
	}
	if _, err := s.categoryRepo.GetByID(position.CategoryID); err != nil {
		return fmt.Errorf("%w: category not found", apperrors.ErrValidation)
	}
	if err := s.positionRepo.Create(position); err != nil {
		return err
	}
	s.invalidateCatalog()
	return nil
}

func (s *ElectionService) GetPosition(id uint) (*entity.Position, error) {
	return s.positionRepo.GetByID(id)
}

func (s *ElectionService) ListPositions(categoryID uint) ([]entity.Position, error) {
	if categoryID > 0 {
		return s.positionRepo.ListByCategory(categoryID)
	}
	return s.positionRepo.List()
}

func (s *ElectionService) UpdatePosition(position *entity.Position) error {
	if position.Name == "" {
		return fmt.Errorf("%w: position name is required", apperrors.ErrValidation)
	}
	if err := s.positionRepo.Update(position); err != nil {
		return err
	}
	s.invalidateCatalog()
	return nil
}

func (s *ElectionService) DeletePosition(id uint) error {
	if err := s.positionRepo.Delete(id); err != nil {
		return err
	}
	s.invalidateCatalog()
	return nil
}

// --- Candidates ---

func (s *ElectionService) CreateCandidate(candidate *entity.Candidate) error {
	if candidate.Name == "" {
		return fmt.Errorf("%w: candidate name is required", apperrors.ErrValidation)
	}
	if _, err := s.positionRepo.GetByID(candidate.PositionID); err != nil {
		return fmt.Errorf("%w: position not found", apperrors.ErrValidation)
	}
	if err := s.candidateRepo.Create(candidate); err != nil {
		return err
	}
	s.invalidateCatalog()
	return nil
}

func (s *ElectionService) GetCandidate(id uint) (*entity.Candidate, error) {
	return s.candidateRepo.GetByID(id)
}

func (s *ElectionService) ListCandidates(positionID uint) ([]entity.Candidate, error) {
	if positionID > 0 {
		return s.candidateRepo.ListByPosition(positionID)
	}
	return s.candidateRepo.List()
}

func (s *ElectionService) UpdateCandidate(candidate *entity.Candidate) error {
	if candidate.Name == "" {
		return fmt.Errorf("%w: candidate name is required", apperrors.ErrValidation)
	}
	if err := s.candidateRepo.Update(candidate); err != nil {
		return err
	}
	s.invalidateCatalog()
	return nil
}

func (s *ElectionService) DeleteCandidate(id uint) error {
	if err := s.candidateRepo.Delete(id); err != nil {
		return err
	}
	s.invalidateCatalog()
	return nil
}

// --- Read models ---

// PositionResult groups candidate tallies under their position.
type PositionResult struct {
	PositionID   uint                       `json:"position_id"`
	PositionName string                     `json:"position_name"`
	Candidates   []repository.CandidateTally `json:"candidates"`
}

// Results returns per-position tallies derived from successful votes only.
// The aggregate is cached briefly; vote commits invalidate it.
func (s *ElectionService) Results() ([]PositionResult, error) {
	var cached []PositionResult
	if err := s.cacheRepo.GetJSON(repository.CacheKeyResults, &cached); err == nil {
		return cached, nil
	}

	tallies, err := s.voteRepo.TallyAll()
	if err != nil {
		return nil, err
	}
	results := groupTallies(tallies)

	if err := s.cacheRepo.SetJSON(repository.CacheKeyResults, results, resultsCacheTTL); err != nil {
		log.Printf("[ElectionService] failed to cache results: %v", err)
	}
	return results, nil
}

// ResultsByPosition returns tallies for a single position, uncached.
func (s *ElectionService) ResultsByPosition(positionID uint) ([]repository.CandidateTally, error) {
	if _, err := s.positionRepo.GetByID(positionID); err != nil {
		return nil, err
	}
	return s.voteRepo.TallyByPosition(positionID)
}

func groupTallies(tallies []repository.CandidateTally) []PositionResult {
	results := make([]PositionResult, 0)
	index := make(map[uint]int)
	for _, tally := range tallies {
		i, ok := index[tally.PositionID]
		if !ok {
			results = append(results, PositionResult{
				PositionID:   tally.PositionID,
				PositionName: tally.PositionName,
				Candidates:   make([]repository.CandidateTally, 0, 4),
			})
			i = len(results) - 1
			index[tally.PositionID] = i
		}
		results[i].Candidates = append(results[i].Candidates, tally)
	}
	return results
}

// Dashboard is the admin overview: vote counts by status, revenue and the
// latest activity.
type Dashboard struct {
	PendingVotes    int64         `json:"pending_votes"`
	SuccessfulVotes int64         `json:"successful_votes"`
	FailedVotes     int64         `json:"failed_votes"`
	TotalRevenue    int64         `json:"total_revenue"`
	RecentVotes     []entity.Vote `json:"recent_votes"`
}

func (s *ElectionService) Dashboard() (*Dashboard, error) {
	var cached Dashboard
	if err := s.cacheRepo.GetJSON(repository.CacheKeyDashboard, &cached); err == nil {
		return &cached, nil
	}

	dashboard := &Dashboard{}
	var err error
	if dashboard.PendingVotes, err = s.voteRepo.CountByStatus(entity.VoteStatusPending); err != nil {
		return nil, err
	}
	if dashboard.SuccessfulVotes, err = s.voteRepo.CountByStatus(entity.VoteStatusSuccess); err != nil {
		return nil, err
	}
	if dashboard.FailedVotes, err = s.voteRepo.CountByStatus(entity.VoteStatusFailed); err != nil {
		return nil, err
	}
	if dashboard.TotalRevenue, err = s.voteRepo.TotalRevenue(); err != nil {
		return nil, err
	}
	if dashboard.RecentVotes, err = s.voteRepo.Recent(10); err != nil {
		return nil, err
	}

	if err := s.cacheRepo.SetJSON(repository.CacheKeyDashboard, dashboard, dashboardCacheTTL); err != nil {
		log.Printf("[ElectionService] failed to cache dashboard: %v", err)
	}
	return dashboard, nil
}

func (s *ElectionService) invalidateCatalog() {
	if err := s.cacheRepo.InvalidateKeys(
		repository.CacheKeyCategories,
		repository.CacheKeyResults,
		repository.CacheKeyDashboard,
	); err != nil {
		log.Printf("[ElectionService] cache invalidation failed: %v", err)
	}
}
