package store

const Schema = `
CREATE TABLE IF NOT EXISTS items (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	level INTEGER NOT NULL DEFAULT 0,
	type TEXT NOT NULL DEFAULT '',
	img_url TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_items_level ON items(level);
CREATE INDEX IF NOT EXISTS idx_items_type ON items(type);

-- item_id and the ingredient item_id are not foreign keys: recipes may
-- reference items the store does not hold.
CREATE TABLE IF NOT EXISTS recipes (
	id INTEGER PRIMARY KEY,
	item_id INTEGER NOT NULL,
	job_id INTEGER NOT NULL DEFAULT 0,
	job_name TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_recipes_item_id ON recipes(item_id);

CREATE TABLE IF NOT EXISTS recipe_ingredients (
	recipe_id INTEGER NOT NULL,
	item_id INTEGER NOT NULL,
	quantity INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (recipe_id, item_id)
);

CREATE INDEX IF NOT EXISTS idx_recipe_ingredients_item_id ON recipe_ingredients(item_id);

CREATE TABLE IF NOT EXISTS import_runs (
	id TEXT PRIMARY KEY,
	mode TEXT NOT NULL,
	status TEXT NOT NULL,
	items INTEGER NOT NULL DEFAULT 0,
	recipes INTEGER NOT NULL DEFAULT 0,
	ingredients INTEGER NOT NULL DEFAULT 0,
	failed_batches INTEGER NOT NULL DEFAULT 0,
	error TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Prevent duplicate active runs of the same mode
CREATE UNIQUE INDEX IF NOT EXISTS idx_import_runs_active_mode ON import_runs(mode)
WHERE status IN ('queued', 'running');
`
