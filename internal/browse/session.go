package browse

import (
	"context"
	"sync"

	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
)

// pageFunc loads the window at offset and reports where the next one starts.
type pageFunc[T any] func(ctx context.Context, offset int) (rows []T, next, total int, hasMore bool, err error)

// session accumulates pages of T. One load may run at a time; Reset discards
// everything, including the result of a load still in flight.
type session[T any] struct {
	load pageFunc[T]

	mu       sync.Mutex
	gen      int
	inFlight bool
	offset   int
	rows     []T
	total    int
	hasMore  bool
	err      error
}

func newSession[T any](load pageFunc[T]) *session[T] {
	return &session[T]{load: load, hasMore: true}
}

func (s *session[T]) reset(load pageFunc[T]) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.load = load
	s.offset = 0
	s.rows = nil
	s.total = 0
	s.hasMore = true
	s.err = nil
	s.inFlight = true
	return s.gen
}

func (s *session[T]) loadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return domain.ErrLoadInFlight
	}
	if !s.hasMore {
		s.mu.Unlock()
		return domain.ErrNoMorePages
	}
	s.inFlight = true
	gen := s.gen
	s.mu.Unlock()

	return s.fetch(ctx, gen)
}

func (s *session[T]) fetch(ctx context.Context, gen int) error {
	s.mu.Lock()
	load, offset := s.load, s.offset
	s.mu.Unlock()

	rows, next, total, hasMore, err := load(ctx, offset)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// Superseded by a reset; the new query owns the slot.
		return nil
	}
	s.inFlight = false
	if err != nil {
		s.err = err
		return err
	}
	s.err = nil
	s.rows = append(s.rows, rows...)
	s.offset = next
	s.total = total
	s.hasMore = hasMore
	return nil
}

func (s *session[T]) snapshot() ([]T, int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]T, len(s.rows))
	copy(rows, s.rows)
	return rows, s.total, s.hasMore, s.err
}

func (s *session[T]) loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// CatalogSession is a load-more view over the filtered catalog.
type CatalogSession struct {
	svc *Service
	s   *session[domain.Item]
}

func (s *Service) NewCatalogSession() *CatalogSession {
	c := &CatalogSession{svc: s}
	c.s = newSession(c.loader(domain.ItemFilter{}))
	return c
}

func (c *CatalogSession) loader(filter domain.ItemFilter) pageFunc[domain.Item] {
	filter = filter.Normalize()
	return func(ctx context.Context, offset int) ([]domain.Item, int, int, bool, error) {
		page, err := c.svc.ListItems(ctx, filter, offset)
		if err != nil {
			return nil, 0, 0, false, err
		}
		return page.Items, offset + len(page.Items), page.Total, page.HasMore, nil
	}
}

// SetQuery discards accumulated results and loads the first page of filter.
func (c *CatalogSession) SetQuery(ctx context.Context, filter domain.ItemFilter) error {
	gen := c.s.reset(c.loader(filter))
	return c.s.fetch(ctx, gen)
}

// LoadMore appends the next page.
func (c *CatalogSession) LoadMore(ctx context.Context) error {
	return c.s.loadMore(ctx)
}

func (c *CatalogSession) Items() []domain.Item {
	rows, _, _, _ := c.s.snapshot()
	return rows
}

func (c *CatalogSession) Total() int {
	_, total, _, _ := c.s.snapshot()
	return total
}

func (c *CatalogSession) HasMore() bool {
	_, _, more, _ := c.s.snapshot()
	return more
}

// Err is the error of the last failed load, cleared by the next success.
func (c *CatalogSession) Err() error {
	_, _, _, err := c.s.snapshot()
	return err
}

func (c *CatalogSession) Loading() bool {
	return c.s.loading()
}

// RankingSession is a load-more view over the tension ranking.
type RankingSession struct {
	svc *Service
	s   *session[domain.RankedItem]
}

func (s *Service) NewRankingSession() *RankingSession {
	r := &RankingSession{svc: s}
	r.s = newSession(r.loader())
	return r
}

func (r *RankingSession) loader() pageFunc[domain.RankedItem] {
	return func(ctx context.Context, offset int) ([]domain.RankedItem, int, int, bool, error) {
		page, err := r.svc.RankingPage(ctx, offset)
		if err != nil {
			return nil, 0, 0, false, err
		}
		return page.Items, page.NextOffset, page.Total, page.HasMore, nil
	}
}

// Reset discards accumulated results and loads the first page again.
func (r *RankingSession) Reset(ctx context.Context) error {
	gen := r.s.reset(r.loader())
	return r.s.fetch(ctx, gen)
}

func (r *RankingSession) LoadMore(ctx context.Context) error {
	return r.s.loadMore(ctx)
}

func (r *RankingSession) Items() []domain.RankedItem {
	rows, _, _, _ := r.s.snapshot()
	return rows
}

func (r *RankingSession) Total() int {
	_, total, _, _ := r.s.snapshot()
	return total
}

func (r *RankingSession) HasMore() bool {
	_, _, more, _ := r.s.snapshot()
	return more
}

func (r *RankingSession) Err() error {
	_, _, _, err := r.s.snapshot()
	return err
}

func (r *RankingSession) Loading() bool {
	return r.s.loading()
}
