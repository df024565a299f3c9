// Package normalize turns raw upstream records into the three flat relations.
package normalize

import (
	"fmt"
	"strings"

	"github.com/cesargomez89/dofusdb-explorer/internal/constants"
	"github.com/cesargomez89/dofusdb-explorer/internal/dofusdb"
	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
	"github.com/cesargomez89/dofusdb-explorer/internal/logger"
	"github.com/cesargomez89/dofusdb-explorer/internal/metrics"
)

// IngredientLine is one explicit (ingredient, quantity) pair of a recipe.
type IngredientLine struct {
	ItemID   int
	Quantity int
}

// ItemFromRaw converts an upstream item. A missing image falls back to the
// icon URL under imageBase.
func ItemFromRaw(raw dofusdb.RawItem, imageBase string) domain.Item {
	item := domain.Item{
		ID:          raw.ID,
		Name:        raw.Name.Pick(),
		Description: raw.Description.Pick(),
		Level:       raw.Level,
		ImgURL:      raw.Img,
	}
	if item.Level < 0 {
		item.Level = 0
	}
	if raw.Type != nil {
		item.Type = raw.Type.Name.Pick()
	}
	if item.ImgURL == "" {
		item.ImgURL = IconURL(imageBase, raw.IconID)
	}
	return item
}

// IconURL builds the image URL of an icon id.
func IconURL(imageBase string, iconID int) string {
	if imageBase == "" {
		imageBase = constants.DefaultAPIURL
	}
	return fmt.Sprintf("%s/img/items/%d.png", strings.TrimRight(imageBase, "/"), iconID)
}

// RecipeFromRaw converts an upstream recipe. The result item comes from
// resultId, or from the embedded result when resultId is absent.
func RecipeFromRaw(raw dofusdb.RawRecipe) domain.Recipe {
	recipe := domain.Recipe{
		ID:     raw.ID,
		ItemID: raw.ResultID,
		JobID:  raw.JobID,
	}
	if recipe.ItemID == 0 && raw.Result != nil {
		recipe.ItemID = raw.Result.ID
	}
	if raw.Job != nil {
		recipe.JobName = raw.Job.Name.Pick()
	}
	return recipe
}

// IngredientLines pairs ingredientIds with quantities. Either array missing
// yields no lines. A quantities array shorter than the ids defaults the
// missing entries to 1; a longer one is a mismatch. Non-positive quantities
// become 1.
func IngredientLines(raw dofusdb.RawRecipe) ([]IngredientLine, error) {
	if raw.IngredientIDs == nil || raw.Quantities == nil {
		return nil, nil
	}
	if len(raw.Quantities) > len(raw.IngredientIDs) {
		return nil, fmt.Errorf("recipe %d: %d ids, %d quantities: %w",
			raw.ID, len(raw.IngredientIDs), len(raw.Quantities), domain.ErrIngredientMismatch)
	}

	lines := make([]IngredientLine, 0, len(raw.IngredientIDs))
	for i, id := range raw.IngredientIDs {
		qty := 1
		if i < len(raw.Quantities) && raw.Quantities[i] > 0 {
			qty = raw.Quantities[i]
		}
		lines = append(lines, IngredientLine{ItemID: id, Quantity: qty})
	}
	return lines, nil
}

// Accumulator collects normalized entities across fetches. Items and recipes
// are keyed by id and the first occurrence wins.
type Accumulator struct {
	logger    *logger.Logger
	imageBase string

	items   map[int]struct{}
	recipes map[int]struct{}
	links   map[[2]int]struct{}
	dataset domain.Dataset
}

func NewAccumulator(imageBase string, log *logger.Logger) *Accumulator {
	if log == nil {
		log = logger.Default()
	}
	return &Accumulator{
		logger:    log.WithComponent("normalize"),
		imageBase: imageBase,
		items:     make(map[int]struct{}),
		recipes:   make(map[int]struct{}),
		links:     make(map[[2]int]struct{}),
	}
}

// AddItems adds upstream item records.
func (a *Accumulator) AddItems(raw []dofusdb.RawItem) {
	for _, r := range raw {
		a.addItem(r)
	}
}

// AddRecipes adds upstream recipe records. The embedded result and ingredient
// objects are item sources too.
func (a *Accumulator) AddRecipes(raw []dofusdb.RawRecipe) {
	for _, r := range raw {
		if _, ok := a.recipes[r.ID]; ok {
			continue
		}

		lines, err := IngredientLines(r)
		if err != nil {
			a.logger.Warn("Skipping recipe", "recipe_id", r.ID, "error", err)
			a.dataset.Skipped = append(a.dataset.Skipped, domain.SkippedRecipe{RecipeID: r.ID, Reason: err.Error()})
			metrics.RecipesSkipped.Inc()
			continue
		}

		a.recipes[r.ID] = struct{}{}
		a.dataset.Recipes = append(a.dataset.Recipes, RecipeFromRaw(r))

		if r.Result != nil {
			a.addItem(*r.Result)
		}
		for _, ing := range r.Ingredients {
			a.addItem(ing)
		}

		for _, line := range lines {
			key := [2]int{r.ID, line.ItemID}
			if _, ok := a.links[key]; ok {
				continue
			}
			a.links[key] = struct{}{}
			a.dataset.Ingredients = append(a.dataset.Ingredients, domain.RecipeIngredient{
				RecipeID: r.ID,
				ItemID:   line.ItemID,
				Quantity: line.Quantity,
			})
		}
	}
}

func (a *Accumulator) addItem(raw dofusdb.RawItem) {
	if raw.ID == 0 {
		return
	}
	if _, ok := a.items[raw.ID]; ok {
		return
	}
	a.items[raw.ID] = struct{}{}
	a.dataset.Items = append(a.dataset.Items, ItemFromRaw(raw, a.imageBase))
}

// ItemCount returns the number of distinct items collected so far.
func (a *Accumulator) ItemCount() int {
	return len(a.items)
}

// Result returns the accumulated dataset.
func (a *Accumulator) Result() domain.Dataset {
	return a.dataset
}
