package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ksultani/go-dinebot-backend/internal/domain"
	"github.com/ksultani/go-dinebot-backend/internal/nlu"
)

// MenuRepo defines the repository contract required by MenuService.
type MenuRepo interface {
	ListAvailableMenuItems(ctx context.Context, db *gorm.DB) ([]domain.MenuItem, error)
	GetMenuItem(ctx context.Context, db *gorm.DB, id string) (*domain.MenuItem, error)
}

// MenuService is the read model over the catalog: a TTL cache of available
// items plus inquiry answering. The cache keeps resolver tiers off the
// database on every mention; staleness is bounded by CacheTTL.
type MenuService struct {
	DB       *gorm.DB
	Repo     MenuRepo
	CacheTTL time.Duration

	// Answerer optionally produces conversational menu answers. When nil
	// or failing, the formatted catalog is the reply.
	Answerer nlu.MenuAnswerer

	// Now is a clock seam for tests.
	Now func() time.Time

	mu        sync.RWMutex
	cached    []domain.MenuItem
	fetchedAt time.Time
}

// NewMenuService constructs a MenuService.
func NewMenuService(db *gorm.DB, r MenuRepo, cacheTTL time.Duration, answerer nlu.MenuAnswerer) *MenuService {
	return &MenuService{DB: db, Repo: r, CacheTTL: cacheTTL, Answerer: answerer, Now: time.Now}
}

// Items returns the available catalog, served from cache within CacheTTL.
// A failing refresh with a warm cache serves the stale copy.
func (s *MenuService) Items(ctx context.Context) ([]domain.MenuItem, error) {
	s.mu.RLock()
	if s.cached != nil && s.Now().Sub(s.fetchedAt) < s.CacheTTL {
		items := s.cached
		s.mu.RUnlock()
		return items, nil
	}
	s.mu.RUnlock()

	items, err := s.Repo.ListAvailableMenuItems(ctx, s.DB)
	if err != nil {
		s.mu.RLock()
		stale := s.cached
		s.mu.RUnlock()
		if stale != nil {
			log.Warn().Err(err).Msg("menu refresh failed, serving stale cache")
			return stale, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.cached = items
	s.fetchedAt = s.Now()
	s.mu.Unlock()
	return items, nil
}

// Invalidate drops the cache; the next read refetches.
func (s *MenuService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// Candidates projects the catalog for the NLU collaborators.
func (s *MenuService) Candidates(ctx context.Context) ([]nlu.MenuCandidate, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]nlu.MenuCandidate, 0, len(items))
	for _, it := range items {
		out = append(out, nlu.MenuCandidate{
			ID: it.ID, Name: it.Name, ArabicName: it.ArabicName, Category: it.Category,
		})
	}
	return out, nil
}

// Answer responds to a menu inquiry. The wired answerer gets first shot;
// otherwise (or on failure) the reply degrades to price lookups and the
// formatted catalog.
func (s *MenuService) Answer(ctx context.Context, question string) (string, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return "", ErrNoMenu
	}
	if s.Answerer != nil {
		candidates := make([]nlu.MenuCandidate, 0, len(items))
		for _, it := range items {
			candidates = append(candidates, nlu.MenuCandidate{
				ID: it.ID, Name: it.Name, ArabicName: it.ArabicName, Category: it.Category,
			})
		}
		if ans, err := s.Answerer.Answer(ctx, question, candidates); err == nil && strings.TrimSpace(ans) != "" {
			return ans, nil
		} else if err != nil {
			log.Debug().Err(err).Msg("menu answerer failed, using formatted catalog")
		}
	}

	// Price question about a specific item.
	q := normalizeText(question)
	if strings.Contains(q, "price") || strings.Contains(q, "how much") || strings.Contains(q, "كم سعر") || strings.Contains(q, "بكم") {
		r := (&Resolver{}).Resolve(ctx, question, items)
		if r.Item != nil && r.Confidence >= 0.6 {
			return fmt.Sprintf("%s is $%.2f.", r.Item.Name, r.Item.Price), nil
		}
	}
	return FormatMenu(items), nil
}

// FormatMenu renders the catalog grouped by category, preserving the
// repository's category-then-name ordering.
func FormatMenu(items []domain.MenuItem) string {
	if len(items) == 0 {
		return "The menu is empty right now."
	}
	var b strings.Builder
	b.WriteString("Here's our menu:\n")
	lastCat := ""
	for _, it := range items {
		if it.Category != lastCat {
			lastCat = it.Category
			fmt.Fprintf(&b, "\n%s:\n", it.Category)
		}
		fmt.Fprintf(&b, "  • %s – $%.2f\n", it.Name, it.Price)
	}
	return strings.TrimRight(b.String(), "\n")
}
