// Package memory is an in-process implementation of the repository
// interfaces. It backs DATABASE_URL=memory and the service tests.
// State is lost on restart and is not shared between instances.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"linkgate/internal/entities"
	"linkgate/internal/repository"
)

type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	nextID   int64
	links    map[string]*entities.ShortLink
	clicks   []entities.ClickEvent
	settings entities.SiteSettings
}

type Option func(*Store)

// WithClock overrides the time source used for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		now:   time.Now,
		links: make(map[string]*entities.ShortLink),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ repository.LinkRepository     = (*Store)(nil)
	_ repository.ClickRepository    = (*Store)(nil)
	_ repository.StatsRepository    = (*Store)(nil)
	_ repository.SettingsRepository = (*Store)(nil)
)

func clone(l *entities.ShortLink) *entities.ShortLink {
	c := *l
	if l.ExpiresAt != nil {
		t := *l.ExpiresAt
		c.ExpiresAt = &t
	}
	if l.Description != nil {
		d := *l.Description
		c.Description = &d
	}
	return &c
}

func (s *Store) Create(_ context.Context, p repository.CreateLinkParams) (*entities.ShortLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.links[p.ShortCode]; taken {
		return nil, fmt.Errorf("failed to create link %q: %w", p.ShortCode, repository.ErrDuplicateCode)
	}

	s.nextID++
	link := &entities.ShortLink{
		ID:            s.nextID,
		ShortCode:     p.ShortCode,
		OriginalURL:   p.OriginalURL,
		CreatedAt:     s.now().UTC(),
		ExpiryPolicy:  p.ExpiryPolicy,
		IsActive:      true,
		CustomOptions: p.CustomOptions,
		SourceIP:      p.SourceIP,
		UserAgent:     p.UserAgent,
	}
	if p.ExpiresAt != nil {
		t := p.ExpiresAt.UTC()
		link.ExpiresAt = &t
	}
	s.links[p.ShortCode] = link
	return clone(link), nil
}

func (s *Store) FindByShortCode(_ context.Context, code string) (*entities.ShortLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(link), nil
}

func (s *Store) FindByURL(_ context.Context, url string, policy entities.ExpiryPolicy, opts entities.CustomOptions) (*entities.ShortLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest *entities.ShortLink
	for _, l := range s.links {
		if l.OriginalURL != url || l.ExpiryPolicy != policy || l.CustomOptions != opts || !l.IsActive {
			continue
		}
		if newest == nil || l.ID > newest.ID {
			newest = l
		}
	}
	if newest == nil {
		return nil, repository.ErrNotFound
	}
	return clone(newest), nil
}

func (s *Store) IncrementClicks(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[code]
	if !ok {
		return repository.ErrNotFound
	}
	link.Clicks++
	return nil
}

func (s *Store) Delete(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[code]; !ok {
		return false, nil
	}
	delete(s.links, code)
	s.dropClicks(map[string]bool{code: true})
	return true, nil
}

func (s *Store) dropClicks(codes map[string]bool) {
	kept := s.clicks[:0]
	for _, e := range s.clicks {
		if !codes[e.ShortCode] {
			kept = append(kept, e)
		}
	}
	s.clicks = kept
}

func (s *Store) ListAll(_ context.Context) ([]*entities.ShortLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	links := make([]*entities.ShortLink, 0, len(s.links))
	for _, l := range s.links {
		links = append(links, clone(l))
	}
	sort.Slice(links, func(i, j int) bool { return links[i].ID > links[j].ID })
	return links, nil
}

func (s *Store) ToggleActive(_ context.Context, code string) (*entities.ShortLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	link.IsActive = !link.IsActive
	return clone(link), nil
}

func (s *Store) UpdateDescription(_ context.Context, code, description string) (*entities.ShortLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if description == "" {
		link.Description = nil
	} else {
		link.Description = &description
	}
	return clone(link), nil
}

func (s *Store) PurgeExpired(_ context.Context, before time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes := make([]string, 0)
	purged := make(map[string]bool)
	for code, l := range s.links {
		if l.ExpiresAt != nil && l.ExpiresAt.Before(before) {
			codes = append(codes, code)
			purged[code] = true
			delete(s.links, code)
		}
	}
	if len(codes) > 0 {
		s.dropClicks(purged)
	}
	sort.Strings(codes)
	return codes, nil
}

func (s *Store) InsertClicks(_ context.Context, events []entities.ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clicks = append(s.clicks, events...)
	return nil
}

// Clicks returns a copy of every recorded click event.
func (s *Store) Clicks() []entities.ClickEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]entities.ClickEvent(nil), s.clicks...)
}

func (s *Store) CountLinks(_ context.Context, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, l := range s.links {
		if !l.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Store) SumClicks(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, l := range s.links {
		n += l.Clicks
	}
	return n, nil
}

func (s *Store) CountClicks(_ context.Context, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.clicks {
		if !e.Timestamp.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Store) DailyLinks(_ context.Context, since time.Time, loc *time.Location) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days := make(map[string]int64)
	for _, l := range s.links {
		if !l.CreatedAt.Before(since) {
			days[l.CreatedAt.In(loc).Format(repository.DayLayout)]++
		}
	}
	return days, nil
}

func (s *Store) DailyClicks(_ context.Context, since time.Time, loc *time.Location) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days := make(map[string]int64)
	for _, e := range s.clicks {
		if !e.Timestamp.Before(since) {
			days[e.Timestamp.In(loc).Format(repository.DayLayout)]++
		}
	}
	return days, nil
}

func (s *Store) LinkClicks(_ context.Context) ([]entities.LinkClicks, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entities.LinkClicks
	for _, l := range s.links {
		if l.Clicks == 0 {
			continue
		}
		out = append(out, entities.LinkClicks{
			ShortCode:   l.ShortCode,
			OriginalURL: l.OriginalURL,
			Clicks:      l.Clicks,
			IsPrivate:   l.CustomOptions.IsPrivate,
			IsProtected: l.CustomOptions.HasPassword(),
		})
	}
	return out, nil
}

func (s *Store) ClickBreakdown(_ context.Context, dim entities.ClickDimension, since time.Time) (map[string]int64, error) {
	switch dim {
	case entities.DimensionReferrer, entities.DimensionDevice, entities.DimensionCountry:
	default:
		return nil, fmt.Errorf("unknown click dimension %q", dim)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, e := range s.clicks {
		if !e.Timestamp.Before(since) {
			counts[dim.Value(e)]++
		}
	}
	return counts, nil
}

func (s *Store) Get(_ context.Context) (entities.SiteSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *Store) Save(_ context.Context, settings entities.SiteSettings) (entities.SiteSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings.UpdatedAt = s.now().UTC()
	s.settings = settings
	return settings, nil
}
