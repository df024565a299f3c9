// Package ranking derives per-ingredient demand statistics from recipe links.
package ranking

import (
	"context"
	"fmt"
	"sort"

	"github.com/cesargomez89/dofusdb-explorer/internal/constants"
	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
)

// IngredientSource reads the ingredient relation one window at a time.
type IngredientSource interface {
	ListIngredientRows(ctx context.Context, offset, limit int) ([]domain.RecipeIngredient, error)
}

// Ranking is the ordered list of stats plus an index by item id.
type Ranking struct {
	byItem map[int]*domain.TensionStat
	Stats  []domain.TensionStat
}

// Aggregate folds ingredient rows into per-item stats, ordered by tension
// score descending, then item id ascending.
func Aggregate(rows []domain.RecipeIngredient) *Ranking {
	acc := make(map[int]*domain.TensionStat)
	recipes := make(map[int]map[int]struct{})

	for _, row := range rows {
		st, ok := acc[row.ItemID]
		if !ok {
			st = &domain.TensionStat{ItemID: row.ItemID}
			acc[row.ItemID] = st
			recipes[row.ItemID] = make(map[int]struct{})
		}
		st.TotalQuantity += row.Quantity
		if _, seen := recipes[row.ItemID][row.RecipeID]; !seen {
			recipes[row.ItemID][row.RecipeID] = struct{}{}
			st.RecipeIDs = append(st.RecipeIDs, row.RecipeID)
		}
	}

	stats := make([]domain.TensionStat, 0, len(acc))
	for _, st := range acc {
		sort.Ints(st.RecipeIDs)
		st.RecipeCount = len(st.RecipeIDs)
		st.TensionScore = st.TotalQuantity * st.RecipeCount
		stats = append(stats, *st)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TensionScore != stats[j].TensionScore {
			return stats[i].TensionScore > stats[j].TensionScore
		}
		return stats[i].ItemID < stats[j].ItemID
	})

	r := &Ranking{Stats: stats, byItem: make(map[int]*domain.TensionStat, len(stats))}
	for i := range r.Stats {
		r.byItem[r.Stats[i].ItemID] = &r.Stats[i]
	}
	return r
}

// Compute reads every ingredient row in windows of chunk rows, stopping at
// the first short window, and aggregates them.
func Compute(ctx context.Context, src IngredientSource, chunk int) (*Ranking, error) {
	if chunk <= 0 {
		chunk = constants.DefaultRankingChunkSize
	}

	var rows []domain.RecipeIngredient
	for offset := 0; ; offset += chunk {
		page, err := src.ListIngredientRows(ctx, offset, chunk)
		if err != nil {
			return nil, fmt.Errorf("read ingredient rows at %d: %w", offset, err)
		}
		rows = append(rows, page...)
		if len(page) < chunk {
			break
		}
	}
	return Aggregate(rows), nil
}

// Len returns the number of ranked items.
func (r *Ranking) Len() int {
	return len(r.Stats)
}

// Stat returns the stat of an item, if it appears in any recipe.
func (r *Ranking) Stat(itemID int) (domain.TensionStat, bool) {
	st, ok := r.byItem[itemID]
	if !ok {
		return domain.TensionStat{}, false
	}
	return *st, true
}

// Window returns up to limit stats starting at offset.
func (r *Ranking) Window(offset, limit int) []domain.TensionStat {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(r.Stats) {
		return nil
	}
	end := len(r.Stats)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return r.Stats[offset:end]
}
