package browse

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
	"github.com/cesargomez89/dofusdb-explorer/internal/logger"
)

// memRepo is an in-memory Repository. gate, when set, blocks ListItems until
// a value is received; failNext makes the next ListItems call fail.
type memRepo struct {
	mu          sync.Mutex
	items       []domain.Item
	recipes     []domain.Recipe
	ingredients []domain.RecipeIngredient

	gate         chan struct{}
	started      chan struct{}
	failNext     error
	rankingReads int
	recipeReads  int
}

func (m *memRepo) ListItems(_ context.Context, filter domain.ItemFilter, offset, limit int) ([]domain.Item, int, error) {
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return nil, 0, err
	}

	var matched []domain.Item
	for _, it := range m.items {
		if filter.Matches(it) {
			matched = append(matched, it)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Level != matched[j].Level {
			return matched[i].Level < matched[j].Level
		}
		return matched[i].ID < matched[j].ID
	})
	if offset >= len(matched) {
		return []domain.Item{}, len(matched), nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], len(matched), nil
}

func (m *memRepo) GetItemsByIDs(_ context.Context, ids []int) ([]domain.Item, error) {
	want := map[int]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Item
	for _, it := range m.items {
		if want[it.ID] {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memRepo) DistinctTypes(context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, it := range m.items {
		if it.Type != "" && !seen[it.Type] {
			seen[it.Type] = true
			out = append(out, it.Type)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memRepo) GetRecipeByItemID(_ context.Context, itemID int) (*domain.Recipe, error) {
	m.recipeReads++
	var best *domain.Recipe
	for i := range m.recipes {
		r := m.recipes[i]
		if r.ItemID == itemID && (best == nil || r.ID < best.ID) {
			best = &r
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return best, nil
}

func (m *memRepo) GetRecipesByIDs(_ context.Context, ids []int) ([]domain.Recipe, error) {
	want := map[int]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Recipe
	for _, r := range m.recipes {
		if want[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) ListRecipeIngredients(_ context.Context, recipeID int) ([]domain.RecipeIngredient, error) {
	var out []domain.RecipeIngredient
	for _, ri := range m.ingredients {
		if ri.RecipeID == recipeID {
			out = append(out, ri)
		}
	}
	return out, nil
}

func (m *memRepo) ListIngredientRows(_ context.Context, offset, limit int) ([]domain.RecipeIngredient, error) {
	if offset == 0 {
		m.rankingReads++
	}
	if offset >= len(m.ingredients) {
		return nil, nil
	}
	end := min(offset+limit, len(m.ingredients))
	return m.ingredients[offset:end], nil
}

func catalogRepo(n int) *memRepo {
	repo := &memRepo{}
	for i := 1; i <= n; i++ {
		repo.items = append(repo.items, domain.Item{ID: i, Name: "Item", Level: i, Type: "Resource"})
	}
	return repo
}

func craftingRepo() *memRepo {
	return &memRepo{
		items: []domain.Item{
			{ID: 1, Name: "Iron", Type: "Resource"},
			{ID: 2, Name: "Wood", Type: "Resource"},
			{ID: 3, Name: "Sword", Type: "Weapon", Level: 20},
			{ID: 4, Name: "Axe", Type: "Weapon", Level: 10},
		},
		recipes: []domain.Recipe{
			{ID: 10, ItemID: 3, JobName: "Smith"},
			{ID: 11, ItemID: 4, JobName: "Smith"},
			{ID: 12, ItemID: 3, JobName: "Smith"},
		},
		ingredients: []domain.RecipeIngredient{
			{RecipeID: 10, ItemID: 1, Quantity: 3},
			{RecipeID: 10, ItemID: 2, Quantity: 1},
			{RecipeID: 10, ItemID: 77, Quantity: 9},
			{RecipeID: 11, ItemID: 1, Quantity: 2},
			{RecipeID: 11, ItemID: 77, Quantity: 1},
		},
	}
}

func newService(repo Repository, pageSize int) *Service {
	return NewService(repo, Options{PageSize: pageSize}, logger.Discard())
}

func TestListItems_Paging(t *testing.T) {
	svc := newService(catalogRepo(120), 50)
	ctx := context.Background()

	page, err := svc.ListItems(ctx, domain.ItemFilter{}, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, 50)
	assert.Equal(t, 120, page.Total)
	assert.True(t, page.HasMore)

	page, err = svc.ListItems(ctx, domain.ItemFilter{}, 100)
	require.NoError(t, err)
	assert.Len(t, page.Items, 20)
	assert.False(t, page.HasMore)
}

func TestCatalogSession_LoadMore(t *testing.T) {
	svc := newService(catalogRepo(120), 50)
	ctx := context.Background()
	sess := svc.NewCatalogSession()

	require.NoError(t, sess.SetQuery(ctx, domain.ItemFilter{}))
	require.NoError(t, sess.LoadMore(ctx))
	require.NoError(t, sess.LoadMore(ctx))

	items := sess.Items()
	require.Len(t, items, 120)
	for i, it := range items {
		assert.Equal(t, i+1, it.ID, "no gaps or duplicates")
	}
	assert.False(t, sess.HasMore())
	assert.Equal(t, 120, sess.Total())

	assert.ErrorIs(t, sess.LoadMore(ctx), domain.ErrNoMorePages)
	assert.Len(t, sess.Items(), 120)
}

func TestCatalogSession_SetQueryResets(t *testing.T) {
	repo := catalogRepo(80)
	repo.items = append(repo.items, domain.Item{ID: 500, Name: "Golden Sword", Level: 1})
	svc := newService(repo, 50)
	ctx := context.Background()
	sess := svc.NewCatalogSession()

	require.NoError(t, sess.SetQuery(ctx, domain.ItemFilter{}))
	require.NoError(t, sess.LoadMore(ctx))
	assert.Len(t, sess.Items(), 81)

	require.NoError(t, sess.SetQuery(ctx, domain.ItemFilter{Search: "sword"}))
	items := sess.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 500, items[0].ID)
	assert.False(t, sess.HasMore())
}

func TestCatalogSession_EmptyResult(t *testing.T) {
	svc := newService(catalogRepo(5), 50)
	sess := svc.NewCatalogSession()

	require.NoError(t, sess.SetQuery(context.Background(), domain.ItemFilter{Search: "nothing"}))
	assert.Empty(t, sess.Items())
	assert.False(t, sess.HasMore())
	assert.Zero(t, sess.Total())
}

func TestCatalogSession_ErrorKeepsEarlierPages(t *testing.T) {
	repo := catalogRepo(120)
	svc := newService(repo, 50)
	ctx := context.Background()
	sess := svc.NewCatalogSession()

	require.NoError(t, sess.SetQuery(ctx, domain.ItemFilter{}))

	boom := errors.New("connection reset")
	repo.failNext = boom
	err := sess.LoadMore(ctx)
	require.ErrorIs(t, err, boom)
	assert.ErrorIs(t, sess.Err(), boom)
	assert.Len(t, sess.Items(), 50)
	assert.True(t, sess.HasMore())

	require.NoError(t, sess.LoadMore(ctx))
	assert.NoError(t, sess.Err())
	assert.Len(t, sess.Items(), 100)
}

func TestCatalogSession_RejectsConcurrentLoad(t *testing.T) {
	repo := catalogRepo(120)
	svc := newService(repo, 50)
	ctx := context.Background()
	sess := svc.NewCatalogSession()
	require.NoError(t, sess.SetQuery(ctx, domain.ItemFilter{}))

	repo.gate = make(chan struct{})
	repo.started = make(chan struct{})
	done := make(chan error)
	go func() { done <- sess.LoadMore(ctx) }()

	<-repo.started
	assert.True(t, sess.Loading())
	assert.ErrorIs(t, sess.LoadMore(ctx), domain.ErrLoadInFlight)

	repo.gate <- struct{}{}
	require.NoError(t, <-done)
	assert.Len(t, sess.Items(), 100)
	assert.False(t, sess.Loading())
}

func TestCatalogSession_SetQueryDiscardsStaleLoad(t *testing.T) {
	repo := catalogRepo(120)
	svc := newService(repo, 50)
	ctx := context.Background()
	sess := svc.NewCatalogSession()
	require.NoError(t, sess.SetQuery(ctx, domain.ItemFilter{}))

	repo.gate = make(chan struct{})
	repo.started = make(chan struct{})
	stale := make(chan error)
	go func() { stale <- sess.LoadMore(ctx) }()
	<-repo.started

	fresh := make(chan error)
	go func() { fresh <- sess.SetQuery(ctx, domain.ItemFilter{MaxLevel: 3}) }()
	<-repo.started

	repo.gate <- struct{}{}
	repo.gate <- struct{}{}
	require.NoError(t, <-fresh)
	require.NoError(t, <-stale)

	items := sess.Items()
	require.Len(t, items, 3)
	assert.Equal(t, 3, items[2].ID)
}

func TestRankingPage(t *testing.T) {
	repo := craftingRepo()
	svc := newService(repo, 2)
	ctx := context.Background()

	// Scores: iron 5*2=10, dangling 77 10*2=20, wood 1*1=1.
	page, err := svc.RankingPage(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.NextOffset)
	assert.True(t, page.HasMore)
	require.Len(t, page.Items, 1, "dangling id 77 is skipped")
	assert.Equal(t, 1, page.Items[0].ID)
	assert.Equal(t, 2, page.Items[0].Rank)
	assert.Equal(t, 10, page.Items[0].Stats.TensionScore)

	page, err = svc.RankingPage(ctx, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Items[0].ID)
	assert.False(t, page.HasMore)

	assert.Equal(t, 1, repo.rankingReads, "ranking is computed once")

	svc.Invalidate()
	_, err = svc.RankingPage(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.rankingReads)
}

func TestRankingSession(t *testing.T) {
	svc := newService(craftingRepo(), 2)
	ctx := context.Background()
	sess := svc.NewRankingSession()

	require.NoError(t, sess.Reset(ctx))
	require.NoError(t, sess.LoadMore(ctx))
	assert.ErrorIs(t, sess.LoadMore(ctx), domain.ErrNoMorePages)

	items := sess.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].ID)
	assert.Equal(t, 2, items[1].ID)
	assert.Equal(t, 3, sess.Total())
}

func TestGetRecipeFor(t *testing.T) {
	repo := craftingRepo()
	svc := newService(repo, 50)
	ctx := context.Background()

	detail, err := svc.GetRecipeFor(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 10, detail.ID, "lowest recipe id wins")
	require.NotNil(t, detail.Result)
	assert.Equal(t, "Sword", detail.Result.Name)
	require.Len(t, detail.Ingredients, 2, "dangling ingredient omitted")
	assert.Equal(t, 1, detail.Ingredients[0].ID)
	assert.Equal(t, 3, detail.Ingredients[0].Quantity)
	assert.Equal(t, 2, detail.Ingredients[1].ID)

	_, err = svc.GetRecipeFor(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.recipeReads, "second lookup is cached")

	_, err = svc.GetRecipeFor(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUsedIn(t *testing.T) {
	repo := craftingRepo()
	svc := NewService(repo, Options{PreviewCount: 1}, logger.Discard())
	ctx := context.Background()

	used, err := svc.UsedIn(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, used.RecipeCount)
	assert.Equal(t, []int{10}, used.RecipeIDs)
	require.Len(t, used.Results, 1)
	assert.Equal(t, 3, used.Results[0].ID)

	used, err = svc.UsedIn(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, used.RecipeCount)
	assert.Empty(t, used.Results)
}

func TestItemTypes(t *testing.T) {
	svc := newService(craftingRepo(), 50)
	types, err := svc.ItemTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Resource", "Weapon"}, types)
}
