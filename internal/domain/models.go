package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/cesargomez89/dofusdb-explorer/internal/constants"
)

// Item is a craftable or consumable game object.
type Item struct {
	ID          int    `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Level       int    `json:"level" db:"level"`
	Type        string `json:"type" db:"type"`
	ImgURL      string `json:"img_url" db:"img_url"`
	Description string `json:"description" db:"description"`
}

// Recipe produces exactly one result item (ItemID) from a set of ingredients.
type Recipe struct {
	ID      int    `json:"id" db:"id"`
	ItemID  int    `json:"item_id" db:"item_id"`
	JobID   int    `json:"job_id" db:"job_id"`
	JobName string `json:"job_name" db:"job_name"`
}

// RecipeIngredient is one "recipe consumes Quantity units of item" edge.
// (RecipeID, ItemID) is unique.
type RecipeIngredient struct {
	RecipeID int `json:"recipe_id" db:"recipe_id"`
	ItemID   int `json:"item_id" db:"item_id"`
	Quantity int `json:"quantity" db:"quantity"`
}

// SkippedRecipe records a recipe dropped during normalization.
type SkippedRecipe struct {
	Reason   string `json:"reason"`
	RecipeID int    `json:"recipe_id"`
}

// Dataset is the normalized output of an import: three flat relations keyed by id.
type Dataset struct {
	Items       []Item             `json:"items"`
	Recipes     []Recipe           `json:"recipes"`
	Ingredients []RecipeIngredient `json:"ingredients"`
	Skipped     []SkippedRecipe    `json:"skipped,omitempty"`
}

// TensionStat is the derived demand statistic of an item used as an ingredient.
type TensionStat struct {
	RecipeIDs     []int `json:"recipe_ids"`
	ItemID        int   `json:"item_id"`
	TotalQuantity int   `json:"total_quantity"`
	RecipeCount   int   `json:"recipe_count"`
	TensionScore  int   `json:"tension_score"`
}

// ItemFilter holds the AND-combined catalog predicates. Zero values mean "unset".
type ItemFilter struct {
	Search   string `json:"search,omitempty"`
	Type     string `json:"type,omitempty"`
	MinLevel int    `json:"min_level,omitempty"`
	MaxLevel int    `json:"max_level,omitempty"`
}

// Normalize trims the search term and maps the "all" type to no filter.
func (f ItemFilter) Normalize() ItemFilter {
	f.Search = strings.TrimSpace(f.Search)
	f.Type = strings.TrimSpace(f.Type)
	if strings.EqualFold(f.Type, constants.ItemTypeAll) {
		f.Type = ""
	}
	if f.MinLevel < 0 {
		f.MinLevel = 0
	}
	if f.MaxLevel < 0 {
		f.MaxLevel = 0
	}
	return f
}

// Matches reports whether an item satisfies the filter, with the predicates
// the stores render in SQL.
func (f ItemFilter) Matches(item Item) bool {
	f = f.Normalize()
	if f.Search != "" && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(f.Search)) {
		return false
	}
	if f.Type != "" && item.Type != f.Type {
		return false
	}
	if f.MinLevel > 0 && item.Level < f.MinLevel {
		return false
	}
	if f.MaxLevel > 0 && item.Level > f.MaxLevel {
		return false
	}
	return true
}

// ItemPage is one offset window of the catalog.
type ItemPage struct {
	Items   []Item `json:"items"`
	Total   int    `json:"total"`
	Offset  int    `json:"offset"`
	HasMore bool   `json:"has_more"`
}

// RankedItem is an item with its tension statistic attached.
type RankedItem struct {
	Item
	Stats TensionStat `json:"stats"`
	Rank  int         `json:"rank"`
}

// RankingPage is one offset window of the tension ranking. Ranked ids with no
// stored item are left out of Items, so NextOffset may exceed Offset+len(Items).
type RankingPage struct {
	Items      []RankedItem `json:"items"`
	Total      int          `json:"total"`
	Offset     int          `json:"offset"`
	NextOffset int          `json:"next_offset"`
	HasMore    bool         `json:"has_more"`
}

// UsedIn previews the recipes consuming an item.
type UsedIn struct {
	Results     []Item `json:"results"`
	RecipeIDs   []int  `json:"recipe_ids"`
	ItemID      int    `json:"item_id"`
	RecipeCount int    `json:"recipe_count"`
}

// IngredientDetail is a resolved ingredient of a recipe.
type IngredientDetail struct {
	Item
	Quantity int `json:"quantity"`
}

// RecipeDetail is a recipe with its result and resolvable ingredients.
type RecipeDetail struct {
	Result      *Item              `json:"result,omitempty"`
	Ingredients []IngredientDetail `json:"ingredients"`
	Recipe
}

// ConflictPolicy decides what an upsert does on primary key collision.
type ConflictPolicy string

const (
	ConflictOverwrite ConflictPolicy = "overwrite"
	ConflictIgnore    ConflictPolicy = "ignore"
)

func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case ConflictOverwrite:
		return ConflictOverwrite, nil
	case ConflictIgnore:
		return ConflictIgnore, nil
	}
	return "", fmt.Errorf("unknown conflict policy %q", s)
}

// Relation names one of the three persisted relations.
type Relation string

const (
	RelationItems       Relation = "items"
	RelationRecipes     Relation = "recipes"
	RelationIngredients Relation = "recipe_ingredients"
)

// ConflictPolicies is a per-relation conflict policy.
type ConflictPolicies struct {
	Items       ConflictPolicy
	Recipes     ConflictPolicy
	Ingredients ConflictPolicy
}

// For returns the policy for a relation, defaulting to overwrite.
func (p ConflictPolicies) For(rel Relation) ConflictPolicy {
	var policy ConflictPolicy
	switch rel {
	case RelationItems:
		policy = p.Items
	case RelationRecipes:
		policy = p.Recipes
	case RelationIngredients:
		policy = p.Ingredients
	}
	if policy == "" {
		return ConflictOverwrite
	}
	return policy
}

// DirectLoadPolicies overwrite on conflict; re-imports refresh stored values.
var DirectLoadPolicies = ConflictPolicies{
	Items:       ConflictOverwrite,
	Recipes:     ConflictOverwrite,
	Ingredients: ConflictOverwrite,
}

// StatementLogPolicies leave existing rows untouched on conflict.
var StatementLogPolicies = ConflictPolicies{
	Items:       ConflictIgnore,
	Recipes:     ConflictIgnore,
	Ingredients: ConflictIgnore,
}

type ImportMode string

const (
	ImportModeLoad ImportMode = "load"
	ImportModeSQL  ImportMode = "sql"
)

type ImportStatus string

const (
	ImportStatusQueued    ImportStatus = "queued"
	ImportStatusRunning   ImportStatus = "running"
	ImportStatusCompleted ImportStatus = "completed"
	ImportStatusFailed    ImportStatus = "failed"
)

// ImportRun tracks one execution of the import pipeline.
type ImportRun struct {
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
	Error         *string      `json:"error,omitempty" db:"error"`
	ID            string       `json:"id" db:"id"`
	Mode          ImportMode   `json:"mode" db:"mode"`
	Status        ImportStatus `json:"status" db:"status"`
	Items         int          `json:"items" db:"items"`
	Recipes       int          `json:"recipes" db:"recipes"`
	Ingredients   int          `json:"ingredients" db:"ingredients"`
	FailedBatches int          `json:"failed_batches" db:"failed_batches"`
}

// IsActive reports whether the run is queued or running.
func (r *ImportRun) IsActive() bool {
	return r.Status == ImportStatusQueued || r.Status == ImportStatusRunning
}

// ImportCounts are the per-relation row counts a finished run reports.
type ImportCounts struct {
	Items         int `json:"items"`
	Recipes       int `json:"recipes"`
	Ingredients   int `json:"ingredients"`
	FailedBatches int `json:"failed_batches"`
}
