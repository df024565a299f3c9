package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
	"github.com/cesargomez89/dofusdb-explorer/internal/sqlgen"
)

func pgBind(i int) string { return fmt.Sprintf("$%d", i+1) }

func (s *Store) upsert(ctx context.Context, rel domain.Relation, policy domain.ConflictPolicy, n int, args func(i int) []interface{}) error {
	if n == 0 {
		return nil
	}
	query := sqlgen.UpsertQuery(rel, policy, pgBind)
	batch := &pgx.Batch{}
	for i := 0; i < n; i++ {
		batch.Queue(query, args(i)...)
	}
	return s.sendBatch(ctx, batch)
}

func (s *Store) UpsertItems(ctx context.Context, items []domain.Item, policy domain.ConflictPolicy) error {
	return s.upsert(ctx, domain.RelationItems, policy, len(items), func(i int) []interface{} {
		return sqlgen.ItemArgs(items[i])
	})
}

func (s *Store) UpsertRecipes(ctx context.Context, recipes []domain.Recipe, policy domain.ConflictPolicy) error {
	return s.upsert(ctx, domain.RelationRecipes, policy, len(recipes), func(i int) []interface{} {
		return sqlgen.RecipeArgs(recipes[i])
	})
}

func (s *Store) UpsertIngredients(ctx context.Context, rows []domain.RecipeIngredient, policy domain.ConflictPolicy) error {
	return s.upsert(ctx, domain.RelationIngredients, policy, len(rows), func(i int) []interface{} {
		return sqlgen.IngredientArgs(rows[i])
	})
}

func (s *Store) CountItems(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items`).Scan(&n)
	return n, err
}

func itemWhere(f domain.ItemFilter) (string, []interface{}) {
	f = f.Normalize()
	var clauses []string
	var args []interface{}

	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.Search != "" {
		add(`name ILIKE $%d`, "%"+escapeLike(f.Search)+"%")
	}
	if f.Type != "" {
		add(`type = $%d`, f.Type)
	}
	if f.MinLevel > 0 {
		add(`level >= $%d`, f.MinLevel)
	}
	if f.MaxLevel > 0 {
		add(`level <= $%d`, f.MaxLevel)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *Store) ListItems(ctx context.Context, filter domain.ItemFilter, offset, limit int) ([]domain.Item, int, error) {
	where, args := itemWhere(filter)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT id, name, level, type, img_url, description FROM items%s
		ORDER BY level ASC, id ASC LIMIT $%d OFFSET $%d`, where, n+1, n+2)
	rows, err := s.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.Item])
	return items, total, err
}

func (s *Store) GetItemsByIDs(ctx context.Context, ids []int) ([]domain.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, level, type, img_url, description FROM items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[domain.Item])
}

func (s *Store) DistinctTypes(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT type FROM items WHERE type <> '' ORDER BY type`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) GetRecipeByItemID(ctx context.Context, itemID int) (*domain.Recipe, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, item_id, job_id, job_name FROM recipes WHERE item_id = $1 ORDER BY id ASC LIMIT 1`, itemID)
	if err != nil {
		return nil, err
	}
	recipe, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[domain.Recipe])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return recipe, err
}

func (s *Store) GetRecipesByIDs(ctx context.Context, ids []int) ([]domain.Recipe, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, item_id, job_id, job_name FROM recipes WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[domain.Recipe])
}

func (s *Store) ListRecipeIngredients(ctx context.Context, recipeID int) ([]domain.RecipeIngredient, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT recipe_id, item_id, quantity FROM recipe_ingredients WHERE recipe_id = $1 ORDER BY item_id`, recipeID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[domain.RecipeIngredient])
}

func (s *Store) ListIngredientRows(ctx context.Context, offset, limit int) ([]domain.RecipeIngredient, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT recipe_id, item_id, quantity FROM recipe_ingredients ORDER BY recipe_id, item_id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[domain.RecipeIngredient])
}
