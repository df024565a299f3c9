package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
	"github.com/cesargomez89/dofusdb-explorer/internal/store"
)

func seedStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.db")
	db, err := store.NewSQLiteDB(path)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	items := make([]domain.Item, 0, 7)
	for i := 1; i <= 7; i++ {
		items = append(items, domain.Item{ID: i, Name: "Item " + string(rune('A'+i-1)), Level: i * 10, Type: "Ressource"})
	}
	require.NoError(t, db.UpsertItems(ctx, items, domain.ConflictOverwrite))
	require.NoError(t, db.UpsertRecipes(ctx, []domain.Recipe{{ID: 1, ItemID: 7}}, domain.ConflictOverwrite))
	require.NoError(t, db.UpsertIngredients(ctx, []domain.RecipeIngredient{
		{RecipeID: 1, ItemID: 1, Quantity: 5},
		{RecipeID: 1, ItemID: 2, Quantity: 1},
	}, domain.ConflictOverwrite))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestItemsCommand_LoadsAcrossPages(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", seedStore(t))
	t.Setenv("BROWSE_PAGE_SIZE", "2")

	out, err := run(t, "items", "--json", "--limit", "5", "--min-level", "20")
	require.NoError(t, err)

	var items []domain.Item
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 5)
	assert.Equal(t, 2, items[0].ID)
	assert.Equal(t, 6, items[4].ID)
}

func TestItemsCommand_RejectsInvertedLevels(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", seedStore(t))

	_, err := run(t, "items", "--json=false", "--limit", "50", "--min-level", "50", "--max-level", "10")
	assert.Error(t, err)

	itemsFilter = domain.ItemFilter{}
}

func TestRankingCommand(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", seedStore(t))

	out, err := run(t, "ranking", "--json=false", "--limit", "10")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "RANK"))
	assert.Contains(t, lines[1], "Item A")
	assert.Contains(t, lines[2], "Item B")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	_, err := run(t, "ranking", "--target", "mysql")
	assert.Error(t, err)
	require.NoError(t, rootCmd.PersistentFlags().Set("target", ""))
}
