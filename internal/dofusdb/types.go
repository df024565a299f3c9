package dofusdb

import (
	"encoding/json"

	"github.com/cesargomez89/dofusdb-explorer/internal/constants"
)

// Page is one window of an upstream collection.
type Page struct {
	Data  []json.RawMessage `json:"data"`
	Total int               `json:"total"`
	Limit int               `json:"limit"`
	Skip  int               `json:"skip"`
}

// LocalizedText maps a locale code to its text. Non-string members such as
// the numeric "id" the upstream embeds next to the locales are dropped, and a
// bare string is treated as the preferred locale.
type LocalizedText map[string]string

func (t *LocalizedText) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*t = LocalizedText{constants.PreferredLocale: plain}
		return nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*t = nil
		return nil
	}
	out := make(LocalizedText, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	*t = out
	return nil
}

// Pick returns the preferred locale, then the fallback locale, then "".
func (t LocalizedText) Pick() string {
	if s := t[constants.PreferredLocale]; s != "" {
		return s
	}
	return t[constants.FallbackLocale]
}

type RawItemType struct {
	Name LocalizedText `json:"name"`
}

// RawItem is an upstream item record, either listed directly or embedded in a recipe.
type RawItem struct {
	Type        *RawItemType  `json:"type"`
	Name        LocalizedText `json:"name"`
	Description LocalizedText `json:"description"`
	Img         string        `json:"img"`
	ID          int           `json:"id"`
	Level       int           `json:"level"`
	IconID      int           `json:"iconId"`
}

type RawJob struct {
	Name LocalizedText `json:"name"`
}

// RawRecipe is an upstream recipe record. IngredientIDs and Quantities are
// parallel arrays; Ingredients carries the embedded item objects.
type RawRecipe struct {
	Job           *RawJob   `json:"job"`
	Result        *RawItem  `json:"result"`
	Ingredients   []RawItem `json:"ingredients"`
	IngredientIDs []int     `json:"ingredientIds"`
	Quantities    []int     `json:"quantities"`
	ID            int       `json:"id"`
	ResultID      int       `json:"resultId"`
	JobID         int       `json:"jobId"`
}
