// Package sqlgen renders a dataset as a replayable SQL statement log.
package sqlgen

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cesargomez89/dofusdb-explorer/internal/constants"
	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
)

type Options struct {
	GeneratedAt time.Time
	Policies    domain.ConflictPolicies
}

// Stats counts the statements written per relation.
type Stats map[domain.Relation]int

type table struct {
	name    string
	columns []string
	keys    []string
}

var (
	itemsTable = table{
		name:    constants.ItemsTable,
		columns: []string{"id", "name", "level", "type", "img_url", "description"},
		keys:    []string{"id"},
	}
	recipesTable = table{
		name:    constants.RecipesTable,
		columns: []string{"id", "item_id", "job_id", "job_name"},
		keys:    []string{"id"},
	}
	ingredientsTable = table{
		name:    constants.RecipeIngredientsTable,
		columns: []string{"recipe_id", "item_id", "quantity"},
		keys:    []string{"recipe_id", "item_id"},
	}
)

// Write renders one INSERT per row: items, then recipes, then ingredients.
// Statements are independent so the log can be replayed by any client.
func Write(w io.Writer, ds domain.Dataset, opts Options) (Stats, error) {
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}
	bw := bufio.NewWriter(w)
	stats := Stats{}

	fmt.Fprintf(bw, "-- DofusDB dataset export\n")
	fmt.Fprintf(bw, "-- Generated: %s\n", opts.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(bw, "-- Items: %d, recipes: %d, ingredients: %d\n",
		len(ds.Items), len(ds.Recipes), len(ds.Ingredients))

	section(bw, "ITEMS", len(ds.Items))
	suffix := itemsTable.conflictClause(opts.Policies.For(domain.RelationItems))
	for _, it := range ds.Items {
		itemsTable.insert(bw, suffix, ItemArgs(it)...)
	}
	stats[domain.RelationItems] = len(ds.Items)

	section(bw, "RECIPES", len(ds.Recipes))
	suffix = recipesTable.conflictClause(opts.Policies.For(domain.RelationRecipes))
	for _, r := range ds.Recipes {
		recipesTable.insert(bw, suffix, RecipeArgs(r)...)
	}
	stats[domain.RelationRecipes] = len(ds.Recipes)

	section(bw, "RECIPE INGREDIENTS", len(ds.Ingredients))
	suffix = ingredientsTable.conflictClause(opts.Policies.For(domain.RelationIngredients))
	for _, ri := range ds.Ingredients {
		ingredientsTable.insert(bw, suffix, IngredientArgs(ri)...)
	}
	stats[domain.RelationIngredients] = len(ds.Ingredients)

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("write statement log: %w", err)
	}
	return stats, nil
}

func section(w *bufio.Writer, title string, n int) {
	fmt.Fprintf(w, "\n-- ===================================\n")
	fmt.Fprintf(w, "-- %s (%d)\n", title, n)
	fmt.Fprintf(w, "-- ===================================\n\n")
}

func (t table) conflictClause(policy domain.ConflictPolicy) string {
	target := strings.Join(t.keys, ", ")
	if policy == domain.ConflictIgnore {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", target)
	}

	isKey := make(map[string]bool, len(t.keys))
	for _, k := range t.keys {
		isKey[k] = true
	}
	var sets []string
	for _, c := range t.columns {
		if !isKey[c] {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", target, strings.Join(sets, ", "))
}

func (t table) insert(w *bufio.Writer, suffix string, values ...interface{}) {
	rendered := make([]string, len(values))
	for i, v := range values {
		rendered[i] = Literal(v)
	}
	fmt.Fprintf(w, "INSERT INTO %s (%s) VALUES (%s) %s;\n",
		t.name, strings.Join(t.columns, ", "), strings.Join(rendered, ", "), suffix)
}

// Literal renders a Go value as a SQL literal. Strings are single-quoted with
// embedded quotes doubled.
func Literal(v interface{}) string {
	switch val := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case int:
		return fmt.Sprintf("%d", val)
	case nil:
		return "NULL"
	default:
		return Literal(fmt.Sprint(val))
	}
}

func tableFor(rel domain.Relation) table {
	switch rel {
	case domain.RelationRecipes:
		return recipesTable
	case domain.RelationIngredients:
		return ingredientsTable
	default:
		return itemsTable
	}
}

// UpsertQuery builds a parameterized single-row upsert for a relation. bind
// renders the placeholder of the i-th (0-based) column.
func UpsertQuery(rel domain.Relation, policy domain.ConflictPolicy, bind func(i int) string) string {
	t := tableFor(rel)
	params := make([]string, len(t.columns))
	for i := range t.columns {
		params[i] = bind(i)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) %s",
		t.name, strings.Join(t.columns, ", "), strings.Join(params, ", "), t.conflictClause(policy))
}

// Columns returns the column order UpsertQuery binds.
func Columns(rel domain.Relation) []string {
	return tableFor(rel).columns
}

// ItemArgs returns an item's values in Columns(RelationItems) order.
func ItemArgs(it domain.Item) []interface{} {
	return []interface{}{it.ID, it.Name, it.Level, it.Type, it.ImgURL, it.Description}
}

func RecipeArgs(r domain.Recipe) []interface{} {
	return []interface{}{r.ID, r.ItemID, r.JobID, r.JobName}
}

func IngredientArgs(ri domain.RecipeIngredient) []interface{} {
	return []interface{}{ri.RecipeID, ri.ItemID, ri.Quantity}
}
