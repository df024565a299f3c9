package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
	"github.com/cesargomez89/dofusdb-explorer/internal/sqlgen"
)

func sqliteBind(int) string { return "?" }

// upsert writes rows one statement at a time inside a single transaction, so
// a batch is stored entirely or not at all.
func (db *DB) upsert(ctx context.Context, rel domain.Relation, policy domain.ConflictPolicy, n int, args func(i int) []interface{}) error {
	if n == 0 {
		return nil
	}
	query := sqlgen.UpsertQuery(rel, policy, sqliteBind)
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close() //nolint:errcheck // deferred cleanup

		for i := 0; i < n; i++ {
			if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *DB) UpsertItems(ctx context.Context, items []domain.Item, policy domain.ConflictPolicy) error {
	return db.upsert(ctx, domain.RelationItems, policy, len(items), func(i int) []interface{} {
		return sqlgen.ItemArgs(items[i])
	})
}

func (db *DB) UpsertRecipes(ctx context.Context, recipes []domain.Recipe, policy domain.ConflictPolicy) error {
	return db.upsert(ctx, domain.RelationRecipes, policy, len(recipes), func(i int) []interface{} {
		return sqlgen.RecipeArgs(recipes[i])
	})
}

func (db *DB) UpsertIngredients(ctx context.Context, rows []domain.RecipeIngredient, policy domain.ConflictPolicy) error {
	return db.upsert(ctx, domain.RelationIngredients, policy, len(rows), func(i int) []interface{} {
		return sqlgen.IngredientArgs(rows[i])
	})
}

func (db *DB) CountItems(ctx context.Context) (int, error) {
	var n int
	err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM items`)
	return n, err
}

// itemWhere renders the AND-combined filter predicates.
func itemWhere(f domain.ItemFilter) (string, []interface{}) {
	f = f.Normalize()
	var clauses []string
	var args []interface{}

	if f.Search != "" {
		clauses = append(clauses, foldFunc+"(name) LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(strings.ToLower(f.Search))+"%")
	}
	if f.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, f.Type)
	}
	if f.MinLevel > 0 {
		clauses = append(clauses, "level >= ?")
		args = append(args, f.MinLevel)
	}
	if f.MaxLevel > 0 {
		clauses = append(clauses, "level <= ?")
		args = append(args, f.MaxLevel)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ListItems returns one window of the filtered catalog, ordered by level then
// id, and the total number of matches.
func (db *DB) ListItems(ctx context.Context, filter domain.ItemFilter, offset, limit int) ([]domain.Item, int, error) {
	where, args := itemWhere(filter)

	var total int
	if err := db.GetContext(ctx, &total, `SELECT COUNT(*) FROM items`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, name, level, type, img_url, description FROM items` + where +
		` ORDER BY level ASC, id ASC LIMIT ? OFFSET ?`
	items := []domain.Item{}
	err := db.SelectContext(ctx, &items, query, append(args, limit, offset)...)
	return items, total, err
}

// GetItemsByIDs returns the items that exist among ids, in no particular order.
func (db *DB) GetItemsByIDs(ctx context.Context, ids []int) ([]domain.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, level, type, img_url, description FROM items WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var items []domain.Item
	err = db.SelectContext(ctx, &items, db.Rebind(query), args...)
	return items, err
}

func (db *DB) DistinctTypes(ctx context.Context) ([]string, error) {
	types := []string{}
	err := db.SelectContext(ctx, &types, `SELECT DISTINCT type FROM items WHERE type <> '' ORDER BY type`)
	return types, err
}

// GetRecipeByItemID returns the lowest-id recipe producing the item.
func (db *DB) GetRecipeByItemID(ctx context.Context, itemID int) (*domain.Recipe, error) {
	recipe := &domain.Recipe{}
	err := db.GetContext(ctx, recipe,
		`SELECT id, item_id, job_id, job_name FROM recipes WHERE item_id = ? ORDER BY id ASC LIMIT 1`, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return recipe, nil
}

func (db *DB) GetRecipesByIDs(ctx context.Context, ids []int) ([]domain.Recipe, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, item_id, job_id, job_name FROM recipes WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	var recipes []domain.Recipe
	err = db.SelectContext(ctx, &recipes, db.Rebind(query), args...)
	return recipes, err
}

func (db *DB) ListRecipeIngredients(ctx context.Context, recipeID int) ([]domain.RecipeIngredient, error) {
	var rows []domain.RecipeIngredient
	err := db.SelectContext(ctx, &rows,
		`SELECT recipe_id, item_id, quantity FROM recipe_ingredients WHERE recipe_id = ? ORDER BY item_id`, recipeID)
	return rows, err
}

// ListIngredientRows pages through the whole ingredient relation in key order.
func (db *DB) ListIngredientRows(ctx context.Context, offset, limit int) ([]domain.RecipeIngredient, error) {
	var rows []domain.RecipeIngredient
	err := db.SelectContext(ctx, &rows,
		`SELECT recipe_id, item_id, quantity FROM recipe_ingredients ORDER BY recipe_id, item_id LIMIT ? OFFSET ?`,
		limit, offset)
	return rows, err
}
