package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/juju/clock"
	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/audit"
	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/database/books"
	"github.com/stories1001/publisher/internal/database/featured"
	"github.com/stories1001/publisher/internal/entities"
	"github.com/stories1001/publisher/internal/settingsstore"
)

var (
	ErrInvalidFeaturedSelection = errors.New("invalid featured selection")
	ErrNoFeaturedCandidates     = errors.New("not enough published books to feature")
)

// FeaturedSettingsProvider supplies the rotation settings.
type FeaturedSettingsProvider interface {
	GetFeaturedSettings() settingsstore.FeaturedSettings
	SetFeaturedLastRotatedAt(at time.Time) error
}

type FeaturedView struct {
	Set   *entities.FeaturedSet `json:"set"`
	Books []entities.Book       `json:"books"`
}

type RotationResult struct {
	Rotated bool                  `json:"rotated"`
	Reason  string                `json:"reason,omitempty"`
	Set     *entities.FeaturedSet `json:"set,omitempty"`
}

// FeaturedService manages the set of books shown on the library front page.
type FeaturedService struct {
	// mu serializes set replacement
	mu       sync.Mutex
	featured *featured.Repository
	books    *books.Repository
	settings FeaturedSettingsProvider
	audit    *audit.Service
	clock    clock.Clock
	rand     *rand.Rand
}

func NewFeaturedService(db *gorm.DB, settings FeaturedSettingsProvider, auditService *audit.Service, clk clock.Clock) *FeaturedService {
	if clk == nil {
		clk = clock.WallClock
	}
	return &FeaturedService{
		featured: featured.NewRepository(db),
		books:    books.NewRepository(db),
		settings: settings,
		audit:    auditService,
		clock:    clk,
		rand:     rand.New(rand.NewSource(clk.Now().UnixNano())),
	}
}

// Current returns the active set with its published books in set order.
func (s *FeaturedService) Current() (*FeaturedView, error) {
	set, err := s.featured.GetActive()
	if err != nil {
		return nil, err
	}
	list, err := s.books.GetPublishedByIDs(set.BookIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load featured books: %w", err)
	}
	return &FeaturedView{Set: set, Books: list}, nil
}

func (s *FeaturedService) History(limit int) ([]entities.FeaturedSet, error) {
	return s.featured.History(limit)
}

// SetManual replaces the active set with the given books. Exactly the
// configured number of distinct published books is required.
func (s *FeaturedService) SetManual(bookIDs []uint, durationDays int, creatorID uint) (*FeaturedView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs := s.settings.GetFeaturedSettings()

	seen := make(map[uint]bool, len(bookIDs))
	for _, id := range bookIDs {
		if seen[id] {
			return nil, fmt.Errorf("%w: book %d listed twice", ErrInvalidFeaturedSelection, id)
		}
		seen[id] = true
	}
	if len(bookIDs) != fs.Size {
		return nil, fmt.Errorf("%w: exactly %d books are required, got %d", ErrInvalidFeaturedSelection, fs.Size, len(bookIDs))
	}
	if durationDays == 0 {
		durationDays = fs.DurationDays
	}
	if durationDays < 1 || durationDays > 365 {
		return nil, fmt.Errorf("%w: duration must be between 1 and 365 days", ErrInvalidFeaturedSelection)
	}

	found, err := s.books.GetPublishedByIDs(bookIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load books: %w", err)
	}
	if len(found) != len(bookIDs) {
		return nil, fmt.Errorf("%w: every book must exist and be published", ErrInvalidFeaturedSelection)
	}

	now := s.clock.Now()
	set := &entities.FeaturedSet{
		BookIDs:      bookIDs,
		StartsAt:     now,
		EndsAt:       now.AddDate(0, 0, durationDays),
		RotationType: entities.RotationManual,
		CreatedByID:  &creatorID,
	}
	if err := s.featured.Replace(set); err != nil {
		return nil, fmt.Errorf("failed to store featured set: %w", err)
	}
	s.recordRotation(creatorID, set)

	return &FeaturedView{Set: set, Books: found}, nil
}

// Rotate picks a new automatic set. Unless forced, it does nothing while the
// active set has not expired.
func (s *FeaturedService) Rotate(ctx context.Context, force bool) (*RotationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fs := s.settings.GetFeaturedSettings()
	now := s.clock.Now()

	current, err := s.featured.GetActive()
	if err != nil && !errors.Is(err, featured.ErrNoActiveSet) {
		return nil, fmt.Errorf("failed to load active set: %w", err)
	}
	if current != nil && !force && !current.Expired(now) {
		return &RotationResult{Reason: "active set has not expired", Set: current}, nil
	}

	var exclude []uint
	if current != nil {
		exclude = current.BookIDs
	}

	picked, err := s.selectBooks(fs, exclude)
	if err != nil {
		return nil, err
	}

	// Not enough fresh books: keep some of the current ones.
	if len(picked) < fs.Size && current != nil {
		keep, err := s.books.GetPublishedByIDs(current.BookIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load current books: %w", err)
		}
		for _, b := range keep {
			if len(picked) >= fs.Size {
				break
			}
			picked = append(picked, b.ID)
		}
	}
	if len(picked) < fs.Size {
		return nil, fmt.Errorf("%w: %d of %d available", ErrNoFeaturedCandidates, len(picked), fs.Size)
	}

	set := &entities.FeaturedSet{
		BookIDs:         picked,
		StartsAt:        now,
		EndsAt:          now.AddDate(0, 0, fs.DurationDays),
		RotationType:    entities.RotationAutomatic,
		SelectionMethod: string(fs.SelectionMethod),
	}
	if err := s.featured.Replace(set); err != nil {
		return nil, fmt.Errorf("failed to store featured set: %w", err)
	}
	s.recordRotation(0, set)

	log.Printf("[FEATURED] Rotated featured set %d (%s): %v", set.ID, fs.SelectionMethod, set.BookIDs)
	return &RotationResult{Rotated: true, Set: set}, nil
}

func (s *FeaturedService) selectBooks(fs settingsstore.FeaturedSettings, exclude []uint) ([]uint, error) {
	var (
		candidates []entities.Book
		err        error
	)

	switch fs.SelectionMethod {
	case config.SelectionMostViewed:
		candidates, err = s.books.ListCandidates(exclude, "view_count DESC, id ASC", fs.Size)
	case config.SelectionNewest:
		candidates, err = s.books.ListCandidates(exclude, "published_at DESC, id DESC", fs.Size)
	default:
		candidates, err = s.books.ListCandidates(exclude, "", 0)
		s.rand.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	ids := make([]uint, 0, fs.Size)
	for _, b := range candidates {
		if len(ids) >= fs.Size {
			break
		}
		ids = append(ids, b.ID)
	}
	return ids, nil
}

func (s *FeaturedService) recordRotation(userID uint, set *entities.FeaturedSet) {
	if err := s.settings.SetFeaturedLastRotatedAt(set.StartsAt); err != nil {
		log.Printf("[FEATURED] Failed to record rotation time: %v", err)
	}
	if s.audit != nil {
		s.audit.LogFeatured(userID, set)
	}
}
