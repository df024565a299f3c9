// Package browse serves the catalog, the tension ranking and recipe lookups
// in fixed-size pages.
package browse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/cesargomez89/dofusdb-explorer/internal/constants"
	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
	"github.com/cesargomez89/dofusdb-explorer/internal/logger"
	"github.com/cesargomez89/dofusdb-explorer/internal/ranking"
)

// Repository is the read side of a store.
type Repository interface {
	ranking.IngredientSource
	ListItems(ctx context.Context, filter domain.ItemFilter, offset, limit int) ([]domain.Item, int, error)
	GetItemsByIDs(ctx context.Context, ids []int) ([]domain.Item, error)
	DistinctTypes(ctx context.Context) ([]string, error)
	GetRecipeByItemID(ctx context.Context, itemID int) (*domain.Recipe, error)
	GetRecipesByIDs(ctx context.Context, ids []int) ([]domain.Recipe, error)
	ListRecipeIngredients(ctx context.Context, recipeID int) ([]domain.RecipeIngredient, error)
}

type Options struct {
	PageSize        int
	RankingChunk    int
	PreviewCount    int
	RecipeCacheSize int
	RecipeTTL       time.Duration
}

type Service struct {
	repo    Repository
	logger  *logger.Logger
	recipes *expirable.LRU[int, *domain.RecipeDetail]
	opts    Options

	mu      sync.Mutex
	ranking *ranking.Ranking
}

func NewService(repo Repository, opts Options, log *logger.Logger) *Service {
	if opts.PageSize <= 0 {
		opts.PageSize = constants.DefaultBrowsePageSize
	}
	if opts.RankingChunk <= 0 {
		opts.RankingChunk = constants.DefaultRankingChunkSize
	}
	if opts.PreviewCount <= 0 {
		opts.PreviewCount = constants.DefaultRecipePreviewCount
	}
	if opts.RecipeCacheSize <= 0 {
		opts.RecipeCacheSize = constants.DefaultRecipeCacheSize
	}
	if opts.RecipeTTL <= 0 {
		opts.RecipeTTL = constants.DefaultRecipeTTL
	}
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		repo:    repo,
		opts:    opts,
		logger:  log.WithComponent("browse"),
		recipes: expirable.NewLRU[int, *domain.RecipeDetail](opts.RecipeCacheSize, nil, opts.RecipeTTL),
	}
}

// PageSize returns the number of rows per page.
func (s *Service) PageSize() int {
	return s.opts.PageSize
}

// ListItems returns the filtered catalog window starting at offset.
func (s *Service) ListItems(ctx context.Context, filter domain.ItemFilter, offset int) (*domain.ItemPage, error) {
	if offset < 0 {
		offset = 0
	}
	items, total, err := s.repo.ListItems(ctx, filter.Normalize(), offset, s.opts.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return &domain.ItemPage{
		Items:   items,
		Total:   total,
		Offset:  offset,
		HasMore: offset+len(items) < total,
	}, nil
}

// ItemTypes lists the distinct item types for filter pickers.
func (s *Service) ItemTypes(ctx context.Context) ([]string, error) {
	return s.repo.DistinctTypes(ctx)
}

// Ranking returns the tension ranking, computing it on first use.
func (s *Service) Ranking(ctx context.Context) (*ranking.Ranking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ranking != nil {
		return s.ranking, nil
	}

	start := time.Now()
	r, err := ranking.Compute(ctx, s.repo, s.opts.RankingChunk)
	if err != nil {
		return nil, fmt.Errorf("compute ranking: %w", err)
	}
	s.logger.Info("Ranking computed", "items", r.Len(), "duration", time.Since(start))
	s.ranking = r
	return r, nil
}

// Invalidate drops the cached ranking and recipe details. Call after an import.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.ranking = nil
	s.mu.Unlock()
	s.recipes.Purge()
}

// RankingPage returns the ranked window starting at offset, with items
// resolved. Ranked ids missing from the items relation are skipped.
func (s *Service) RankingPage(ctx context.Context, offset int) (*domain.RankingPage, error) {
	if offset < 0 {
		offset = 0
	}
	r, err := s.Ranking(ctx)
	if err != nil {
		return nil, err
	}

	window := r.Window(offset, s.opts.PageSize)
	page := &domain.RankingPage{
		Items:      []domain.RankedItem{},
		Total:      r.Len(),
		Offset:     offset,
		NextOffset: offset + len(window),
	}
	page.HasMore = page.NextOffset < page.Total
	if len(window) == 0 {
		return page, nil
	}

	ids := make([]int, len(window))
	for i, st := range window {
		ids[i] = st.ItemID
	}
	items, err := s.repo.GetItemsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve ranked items: %w", err)
	}
	byID := make(map[int]domain.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	for i, st := range window {
		it, ok := byID[st.ItemID]
		if !ok {
			continue
		}
		page.Items = append(page.Items, domain.RankedItem{Item: it, Stats: st, Rank: offset + i + 1})
	}
	return page, nil
}

// GetRecipeFor returns the lowest-id recipe producing itemID, with its
// resolvable ingredients. Ingredients whose item is not stored are omitted.
func (s *Service) GetRecipeFor(ctx context.Context, itemID int) (*domain.RecipeDetail, error) {
	if detail, ok := s.recipes.Get(itemID); ok {
		return detail, nil
	}

	recipe, err := s.repo.GetRecipeByItemID(ctx, itemID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get recipe for item %d: %w", itemID, err)
	}

	rows, err := s.repo.ListRecipeIngredients(ctx, recipe.ID)
	if err != nil {
		return nil, fmt.Errorf("list ingredients of recipe %d: %w", recipe.ID, err)
	}

	ids := make([]int, 0, len(rows)+1)
	ids = append(ids, recipe.ItemID)
	for _, row := range rows {
		ids = append(ids, row.ItemID)
	}
	items, err := s.repo.GetItemsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve recipe items: %w", err)
	}
	byID := make(map[int]domain.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	detail := &domain.RecipeDetail{Recipe: *recipe, Ingredients: []domain.IngredientDetail{}}
	if result, ok := byID[recipe.ItemID]; ok {
		detail.Result = &result
	}
	for _, row := range rows {
		it, ok := byID[row.ItemID]
		if !ok {
			s.logger.Debug("Omitting dangling ingredient", "recipe_id", recipe.ID, "item_id", row.ItemID)
			continue
		}
		detail.Ingredients = append(detail.Ingredients, domain.IngredientDetail{Item: it, Quantity: row.Quantity})
	}

	s.recipes.Add(itemID, detail)
	return detail, nil
}

// UsedIn previews the result items of the first recipes consuming itemID.
func (s *Service) UsedIn(ctx context.Context, itemID int) (*domain.UsedIn, error) {
	r, err := s.Ranking(ctx)
	if err != nil {
		return nil, err
	}

	out := &domain.UsedIn{ItemID: itemID, Results: []domain.Item{}, RecipeIDs: []int{}}
	st, ok := r.Stat(itemID)
	if !ok {
		return out, nil
	}
	out.RecipeCount = st.RecipeCount

	preview := st.RecipeIDs
	if len(preview) > s.opts.PreviewCount {
		preview = preview[:s.opts.PreviewCount]
	}
	out.RecipeIDs = preview

	recipes, err := s.repo.GetRecipesByIDs(ctx, preview)
	if err != nil {
		return nil, fmt.Errorf("get recipes: %w", err)
	}
	resultIDs := make([]int, 0, len(recipes))
	seen := make(map[int]bool, len(recipes))
	for _, rec := range recipes {
		if !seen[rec.ItemID] {
			seen[rec.ItemID] = true
			resultIDs = append(resultIDs, rec.ItemID)
		}
	}

	items, err := s.repo.GetItemsByIDs(ctx, resultIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve recipe results: %w", err)
	}
	byID := make(map[int]domain.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	for _, id := range resultIDs {
		if it, ok := byID[id]; ok {
			out.Results = append(out.Results, it)
		}
	}
	return out, nil
}
