package pgstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
)

// setupStore connects to DOFUSDB_TEST_DATABASE_URL and empties every table.
func setupStore(t *testing.T) *Store {
	t.Helper()
	connString := os.Getenv("DOFUSDB_TEST_DATABASE_URL")
	if connString == "" || testing.Short() {
		t.Skip("DOFUSDB_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := New(ctx, connString)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.pool.Exec(ctx, `TRUNCATE items, recipes, recipe_ingredients, import_runs`)
	require.NoError(t, err)
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.UpsertItems(ctx, []domain.Item{
		{ID: 1, Name: "Iron Ore", Level: 1, Type: "Resource"},
		{ID: 2, Name: "Épée Rouillée", Level: 12, Type: "Épée"},
		{ID: 3, Name: "Épée du Bouftou", Level: 30, Type: "Épée"},
	}, domain.ConflictOverwrite))
	require.NoError(t, s.UpsertRecipes(ctx, []domain.Recipe{
		{ID: 11, ItemID: 3, JobName: "Forgeur"},
		{ID: 10, ItemID: 3, JobName: "Forgeur"},
	}, domain.ConflictOverwrite))
	require.NoError(t, s.UpsertIngredients(ctx, []domain.RecipeIngredient{
		{RecipeID: 10, ItemID: 1, Quantity: 4},
		{RecipeID: 10, ItemID: 404, Quantity: 1},
	}, domain.ConflictOverwrite))
}

func TestStore_Catalog(t *testing.T) {
	s := setupStore(t)
	seed(t, s)
	ctx := context.Background()

	items, total, err := s.ListItems(ctx, domain.ItemFilter{Search: "Épée"}, 0, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].ID)

	_, total, err = s.ListItems(ctx, domain.ItemFilter{Search: "IRON"}, 0, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	items, total, err = s.ListItems(ctx, domain.ItemFilter{Type: "Épée", MinLevel: 20}, 0, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 3, items[0].ID)

	recipe, err := s.GetRecipeByItemID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 10, recipe.ID)

	_, err = s.GetRecipeByItemID(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	found, err := s.GetItemsByIDs(ctx, []int{1, 404})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	types, err := s.DistinctTypes(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Resource", "Épée"}, types)

	rows, err := s.ListIngredientRows(ctx, 0, 1000)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestStore_IgnorePolicy(t *testing.T) {
	s := setupStore(t)
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.UpsertItems(ctx, []domain.Item{{ID: 1, Name: "Changed"}}, domain.ConflictIgnore))
	items, err := s.GetItemsByIDs(ctx, []int{1})
	require.NoError(t, err)
	assert.Equal(t, "Iron Ore", items[0].Name)

	n, err := s.CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStore_ImportRuns(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	now := time.Now()
	run := &domain.ImportRun{ID: "run-1", Mode: domain.ImportModeLoad, Status: domain.ImportStatusQueued, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateImportRun(ctx, run))

	active, err := s.GetActiveImportRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "run-1", active.ID)

	require.NoError(t, s.FinishImportRun(ctx, "run-1", domain.ImportCounts{Items: 3, Recipes: 1}))
	got, err := s.GetImportRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ImportStatusCompleted, got.Status)
	assert.Equal(t, 3, got.Items)

	active, err = s.GetActiveImportRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	_, err = s.GetImportRun(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
