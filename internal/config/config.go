package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cesargomez89/dofusdb-explorer/internal/constants"
	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
)

// Config holds all application configuration
type Config struct {
	Port               string
	DBDriver           string
	DBPath             string
	DatabaseURL        string
	APIURL             string
	LogLevel           string
	LogFormat          string
	SQLOutputDir       string
	ItemConflict       string
	RecipeConflict     string
	IngredientConflict string
	// Statement log policies, applied by the sql command and SQL-mode runs.
	SQLItemConflict       string
	SQLRecipeConflict     string
	SQLIngredientConflict string
	FetchPageSize         int
	InsertBatchSize       int
	BrowsePageSize        int
	MaxRetries            int
	SkipItemsThreshold    int
	RateLimit             time.Duration
}

// Load loads configuration from environment variables with defaults.
// Values from .env.local and .env are applied first; real environment variables win.
func Load() *Config {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	return &Config{
		Port:                  getEnv("PORT", constants.DefaultPort),
		DBDriver:              getEnv("DB_DRIVER", constants.DefaultDBDriver),
		DBPath:                getEnv("DB_PATH", constants.DefaultDBPath),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		APIURL:                strings.TrimRight(getEnv("DOFUSDB_API_URL", constants.DefaultAPIURL), "/"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "text"),
		SQLOutputDir:          getEnv("SQL_OUTPUT_DIR", constants.DefaultSQLOutputDir),
		ItemConflict:          getEnv("ITEM_CONFLICT", constants.ConflictOverwrite),
		RecipeConflict:        getEnv("RECIPE_CONFLICT", constants.ConflictOverwrite),
		IngredientConflict:    getEnv("INGREDIENT_CONFLICT", constants.ConflictOverwrite),
		SQLItemConflict:       getEnv("SQL_ITEM_CONFLICT", constants.ConflictIgnore),
		SQLRecipeConflict:     getEnv("SQL_RECIPE_CONFLICT", constants.ConflictIgnore),
		SQLIngredientConflict: getEnv("SQL_INGREDIENT_CONFLICT", constants.ConflictIgnore),
		FetchPageSize:         getEnvInt("FETCH_PAGE_SIZE", constants.DefaultFetchPageSize),
		InsertBatchSize:       getEnvInt("INSERT_BATCH_SIZE", constants.DefaultInsertBatchSize),
		BrowsePageSize:        getEnvInt("BROWSE_PAGE_SIZE", constants.DefaultBrowsePageSize),
		MaxRetries:            getEnvInt("MAX_RETRIES", constants.DefaultRetryCount),
		SkipItemsThreshold:    getEnvInt("SKIP_ITEMS_THRESHOLD", constants.DefaultSkipItemsThreshold),
		RateLimit:             time.Duration(getEnvInt("RATE_LIMIT_MS", int(constants.DefaultRateLimit/time.Millisecond))) * time.Millisecond,
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	// Validate Port
	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	switch c.DBDriver {
	case constants.DriverSQLite:
		if c.DBPath == "" {
			errors = append(errors, "DB_PATH cannot be empty")
		}
	case constants.DriverPostgres:
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL cannot be empty when DB_DRIVER is postgres")
		}
	default:
		errors = append(errors, fmt.Sprintf("DB_DRIVER must be one of: sqlite, postgres, got: %s", c.DBDriver))
	}

	// Validate APIURL
	if c.APIURL == "" {
		errors = append(errors, "DOFUSDB_API_URL cannot be empty")
	} else if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Sprintf("DOFUSDB_API_URL is not a valid URL: %s", c.APIURL))
	}

	if c.SQLOutputDir == "" {
		errors = append(errors, "SQL_OUTPUT_DIR cannot be empty")
	}

	if c.FetchPageSize < 1 || c.FetchPageSize > constants.DefaultFetchPageSize {
		errors = append(errors, fmt.Sprintf("FETCH_PAGE_SIZE must be between 1 and %d, got: %d", constants.DefaultFetchPageSize, c.FetchPageSize))
	}
	if c.InsertBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("INSERT_BATCH_SIZE must be positive, got: %d", c.InsertBatchSize))
	}
	if c.BrowsePageSize < 1 {
		errors = append(errors, fmt.Sprintf("BROWSE_PAGE_SIZE must be positive, got: %d", c.BrowsePageSize))
	}
	if c.MaxRetries < 1 {
		errors = append(errors, fmt.Sprintf("MAX_RETRIES must be at least 1, got: %d", c.MaxRetries))
	}
	if c.SkipItemsThreshold < 0 {
		errors = append(errors, fmt.Sprintf("SKIP_ITEMS_THRESHOLD cannot be negative, got: %d", c.SkipItemsThreshold))
	}
	if c.RateLimit < 0 {
		errors = append(errors, fmt.Sprintf("RATE_LIMIT_MS cannot be negative, got: %v", c.RateLimit))
	}

	validConflicts := map[string]bool{
		constants.ConflictOverwrite: true,
		constants.ConflictIgnore:    true,
	}
	for key, value := range map[string]string{
		"ITEM_CONFLICT":           c.ItemConflict,
		"RECIPE_CONFLICT":         c.RecipeConflict,
		"INGREDIENT_CONFLICT":     c.IngredientConflict,
		"SQL_ITEM_CONFLICT":       c.SQLItemConflict,
		"SQL_RECIPE_CONFLICT":     c.SQLRecipeConflict,
		"SQL_INGREDIENT_CONFLICT": c.SQLIngredientConflict,
	} {
		if !validConflicts[value] {
			errors = append(errors, fmt.Sprintf("%s must be one of: overwrite, ignore, got: %s", key, value))
		}
	}

	// Validate LogLevel
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	// Validate LogFormat
	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// ConflictPolicies returns the configured per-relation policies for a direct load.
// Call after Validate.
func (c *Config) ConflictPolicies() domain.ConflictPolicies {
	return domain.ConflictPolicies{
		Items:       domain.ConflictPolicy(c.ItemConflict),
		Recipes:     domain.ConflictPolicy(c.RecipeConflict),
		Ingredients: domain.ConflictPolicy(c.IngredientConflict),
	}
}

// StatementConflictPolicies returns the configured per-relation policies for a
// statement log. Call after Validate.
func (c *Config) StatementConflictPolicies() domain.ConflictPolicies {
	return domain.ConflictPolicies{
		Items:       domain.ConflictPolicy(c.SQLItemConflict),
		Recipes:     domain.ConflictPolicy(c.SQLRecipeConflict),
		Ingredients: domain.ConflictPolicy(c.SQLIngredientConflict),
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvInt is getEnv for integers. Unparseable values fall back to -1 so Validate reports them.
func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return n
}
