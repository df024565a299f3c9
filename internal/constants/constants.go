// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort         = "8080"
	DefaultDBDriver     = DriverSQLite
	DefaultDBPath       = "dofusdb.db"
	DefaultSQLOutputDir = "exports"
	DefaultAPIURL       = "https://api.dofusdb.fr"
	DefaultPollInterval = 2 * time.Second
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultRecipeTTL    = 10 * time.Minute
)

// Upstream fetching
const (
	// DefaultFetchPageSize is the maximum page size accepted by the upstream API.
	DefaultFetchPageSize = 50
	DefaultRateLimit     = 200 * time.Millisecond
	DefaultRetryCount    = 3
	DefaultRetryBase     = 1 * time.Second
)

// Loading
const (
	DefaultInsertBatchSize = 100
	// DefaultSkipItemsThreshold skips the items fetch when the store already holds this many items.
	DefaultSkipItemsThreshold = 20000
)

// Browsing
const (
	DefaultBrowsePageSize     = 50
	DefaultRankingChunkSize   = 1000
	DefaultRecipePreviewCount = 12
	DefaultRecipeCacheSize    = 512
	MaxItemLevel              = 200
	MaxImportHistory          = 20
)

// Upstream collections
const (
	CollectionItems   = "items"
	CollectionRecipes = "recipes"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Database tables
const (
	ItemsTable             = "items"
	RecipesTable           = "recipes"
	RecipeIngredientsTable = "recipe_ingredients"
)

// Conflict policies
const (
	ConflictOverwrite = "overwrite"
	ConflictIgnore    = "ignore"
)

// Locales, in preference order
const (
	PreferredLocale = "fr"
	FallbackLocale  = "en"
)

// ItemTypeAll is the filter value meaning "any type".
const ItemTypeAll = "all"

// File Permissions
const (
	FilePermissions = 0644
	DirPermissions  = 0755
)
