package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cesargomez89/dofusdb-explorer/internal/config"
	"github.com/cesargomez89/dofusdb-explorer/internal/constants"
	"github.com/cesargomez89/dofusdb-explorer/internal/dofusdb"
	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
	"github.com/cesargomez89/dofusdb-explorer/internal/logger"
)

type fakeSource struct {
	items      []dofusdb.RawItem
	recipes    []dofusdb.RawRecipe
	itemsErr   error
	recipesErr error

	mu          sync.Mutex
	itemCalls   int
	recipeCalls int
}

func (f *fakeSource) FetchItems(ctx context.Context, pageSize int, progress dofusdb.Progress) ([]dofusdb.RawItem, error) {
	f.mu.Lock()
	f.itemCalls++
	f.mu.Unlock()
	return f.items, f.itemsErr
}

func (f *fakeSource) FetchRecipes(ctx context.Context, pageSize int, progress dofusdb.Progress) ([]dofusdb.RawRecipe, error) {
	f.mu.Lock()
	f.recipeCalls++
	f.mu.Unlock()
	return f.recipes, f.recipesErr
}

type fakeStore struct {
	count       int
	items       []domain.Item
	recipes     []domain.Recipe
	ingredients []domain.RecipeIngredient
	policies    map[domain.Relation]domain.ConflictPolicy
}

func newFakeStore(count int) *fakeStore {
	return &fakeStore{count: count, policies: map[domain.Relation]domain.ConflictPolicy{}}
}

func (f *fakeStore) CountItems(ctx context.Context) (int, error) { return f.count, nil }

func (f *fakeStore) UpsertItems(ctx context.Context, items []domain.Item, policy domain.ConflictPolicy) error {
	f.items = append(f.items, items...)
	f.policies[domain.RelationItems] = policy
	return nil
}

func (f *fakeStore) UpsertRecipes(ctx context.Context, recipes []domain.Recipe, policy domain.ConflictPolicy) error {
	f.recipes = append(f.recipes, recipes...)
	f.policies[domain.RelationRecipes] = policy
	return nil
}

func (f *fakeStore) UpsertIngredients(ctx context.Context, rows []domain.RecipeIngredient, policy domain.ConflictPolicy) error {
	f.ingredients = append(f.ingredients, rows...)
	f.policies[domain.RelationIngredients] = policy
	return nil
}

func name(s string) dofusdb.LocalizedText {
	return dofusdb.LocalizedText{"fr": s}
}

func sampleSource() *fakeSource {
	return &fakeSource{
		items: []dofusdb.RawItem{
			{ID: 1, Name: name("Fer"), Level: 1, IconID: 10},
			{ID: 2, Name: name("Épée"), Level: 20, IconID: 20},
		},
		recipes: []dofusdb.RawRecipe{
			{
				ID: 100, ResultID: 2, JobID: 11,
				Job:           &dofusdb.RawJob{Name: name("Forgeur")},
				Result:        &dofusdb.RawItem{ID: 2, Name: name("Épée"), Level: 20},
				IngredientIDs: []int{1},
				Quantities:    []int{3},
			},
			{
				ID: 101, ResultID: 2,
				IngredientIDs: []int{1},
				Quantities:    []int{1, 2},
			},
		},
	}
}

func testPipelineOptions() PipelineOptions {
	return PipelineOptions{
		ImageBase:          "https://img.test",
		Policies:           domain.DirectLoadPolicies,
		SkipItemsThreshold: 20000,
	}
}

func TestPipeline_DirectLoad(t *testing.T) {
	src := sampleSource()
	st := newFakeStore(0)
	p := NewPipeline(src, st, testPipelineOptions(), logger.Default())

	report, err := p.Run(context.Background(), RunOptions{Mode: domain.ImportModeLoad})
	require.NoError(t, err)

	assert.False(t, report.ItemsSkipped)
	assert.Equal(t, 1, src.itemCalls)
	assert.Equal(t, 2, report.ItemsFetched)
	assert.Equal(t, 2, report.RecipesFetched)

	require.Len(t, st.items, 2)
	assert.Equal(t, "Fer", st.items[0].Name)
	require.Len(t, st.recipes, 1)
	assert.Equal(t, domain.Recipe{ID: 100, ItemID: 2, JobID: 11, JobName: "Forgeur"}, st.recipes[0])
	assert.Equal(t, []domain.RecipeIngredient{{RecipeID: 100, ItemID: 1, Quantity: 3}}, st.ingredients)
	assert.Equal(t, domain.ConflictOverwrite, st.policies[domain.RelationItems])

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, 101, report.Skipped[0].RecipeID)

	assert.Equal(t, domain.ImportCounts{Items: 2, Recipes: 1, Ingredients: 1}, report.Counts())
}

func TestPipeline_SkipsItemsWhenStoreIsFull(t *testing.T) {
	src := sampleSource()
	st := newFakeStore(20000)
	p := NewPipeline(src, st, testPipelineOptions(), logger.Default())

	report, err := p.Run(context.Background(), RunOptions{Mode: domain.ImportModeLoad})
	require.NoError(t, err)

	assert.True(t, report.ItemsSkipped)
	assert.Equal(t, 0, src.itemCalls)
	assert.Equal(t, 1, src.recipeCalls)

	// Only the embedded result item is written, without touching stored rows.
	require.Len(t, st.items, 1)
	assert.Equal(t, 2, st.items[0].ID)
	assert.Equal(t, domain.ConflictIgnore, st.policies[domain.RelationItems])
	assert.Equal(t, domain.ConflictOverwrite, st.policies[domain.RelationRecipes])
}

func TestPipeline_ForceItems(t *testing.T) {
	src := sampleSource()
	st := newFakeStore(50000)
	p := NewPipeline(src, st, testPipelineOptions(), logger.Default())

	report, err := p.Run(context.Background(), RunOptions{Mode: domain.ImportModeLoad, ForceItems: true})
	require.NoError(t, err)
	assert.False(t, report.ItemsSkipped)
	assert.Equal(t, 1, src.itemCalls)
}

func TestPipeline_StatementLog(t *testing.T) {
	src := sampleSource()
	p := NewPipeline(src, nil, PipelineOptions{}, logger.Default())

	var buf bytes.Buffer
	report, err := p.Run(context.Background(), RunOptions{Mode: domain.ImportModeSQL, Output: &buf})
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "INSERT INTO items "))
	assert.Equal(t, 1, strings.Count(out, "INSERT INTO recipes "))
	assert.Equal(t, 1, strings.Count(out, "INSERT INTO recipe_ingredients "))
	assert.Contains(t, out, "DO NOTHING;")
	assert.Contains(t, out, "'Épée'")
	assert.Equal(t, domain.ImportCounts{Items: 2, Recipes: 1, Ingredients: 1}, report.Counts())
}

func TestPipeline_StatementLogUsesConfiguredPolicies(t *testing.T) {
	cfg := &config.Config{
		APIURL:                constants.DefaultAPIURL,
		ItemConflict:          constants.ConflictOverwrite,
		RecipeConflict:        constants.ConflictOverwrite,
		IngredientConflict:    constants.ConflictOverwrite,
		SQLItemConflict:       constants.ConflictIgnore,
		SQLRecipeConflict:     constants.ConflictOverwrite,
		SQLIngredientConflict: constants.ConflictIgnore,
	}
	p := NewPipeline(sampleSource(), nil, PipelineOptionsFrom(cfg), logger.Default())

	var buf bytes.Buffer
	_, err := p.Run(context.Background(), RunOptions{Mode: domain.ImportModeSQL, Output: &buf})
	require.NoError(t, err)

	for _, line := range strings.Split(buf.String(), "\n") {
		switch {
		case strings.HasPrefix(line, "INSERT INTO recipes "):
			assert.Contains(t, line, "DO UPDATE SET")
		case strings.HasPrefix(line, "INSERT INTO items "), strings.HasPrefix(line, "INSERT INTO recipe_ingredients "):
			assert.Contains(t, line, "DO NOTHING;")
		}
	}
}

func TestPipeline_StatementLogIgnoresSkipThreshold(t *testing.T) {
	src := sampleSource()
	st := newFakeStore(20000)
	p := NewPipeline(src, st, testPipelineOptions(), logger.Default())

	var buf bytes.Buffer
	report, err := p.Run(context.Background(), RunOptions{Mode: domain.ImportModeSQL, Output: &buf})
	require.NoError(t, err)
	assert.False(t, report.ItemsSkipped)
	assert.Equal(t, 1, src.itemCalls)
	assert.Empty(t, st.items)
}

func TestPipeline_FetchFailureWritesNothing(t *testing.T) {
	src := sampleSource()
	src.recipesErr = fmt.Errorf("recipes skip 50: %w", domain.ErrRetriesExhausted)
	st := newFakeStore(0)
	p := NewPipeline(src, st, testPipelineOptions(), logger.Default())

	report, err := p.Run(context.Background(), RunOptions{Mode: domain.ImportModeLoad})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrRetriesExhausted)
	assert.Empty(t, st.items)
	assert.Empty(t, st.recipes)
}

func TestPipeline_InvalidOptions(t *testing.T) {
	p := NewPipeline(sampleSource(), nil, testPipelineOptions(), logger.Default())

	_, err := p.Run(context.Background(), RunOptions{Mode: domain.ImportModeLoad})
	assert.Error(t, err)

	_, err = p.Run(context.Background(), RunOptions{Mode: domain.ImportModeSQL})
	assert.Error(t, err)

	_, err = p.Run(context.Background(), RunOptions{Mode: "csv"})
	assert.Error(t, err)
}

func TestImportRunner_WritesStatementLog(t *testing.T) {
	dir := t.TempDir()
	runner := &ImportRunner{
		Pipeline:  NewPipeline(sampleSource(), nil, PipelineOptions{}, logger.Default()),
		OutputDir: dir,
	}

	run := &domain.ImportRun{ID: "abc", Mode: domain.ImportModeSQL}
	counts, err := runner.Run(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Items)

	data, err := os.ReadFile(runner.SQLPath("abc"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "-- DofusDB dataset export"))
}

func TestImportRunner_DirectLoad(t *testing.T) {
	st := newFakeStore(0)
	runner := &ImportRunner{
		Pipeline:  NewPipeline(sampleSource(), st, testPipelineOptions(), logger.Default()),
		OutputDir: t.TempDir(),
	}

	counts, err := runner.Run(context.Background(), &domain.ImportRun{ID: "x", Mode: domain.ImportModeLoad})
	require.NoError(t, err)
	assert.Equal(t, domain.ImportCounts{Items: 2, Recipes: 1, Ingredients: 1}, counts)
	assert.Len(t, st.recipes, 1)
}
