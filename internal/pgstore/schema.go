package pgstore

const Schema = `
CREATE TABLE IF NOT EXISTS items (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	level INTEGER NOT NULL DEFAULT 0,
	type TEXT NOT NULL DEFAULT '',
	img_url TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_items_level ON items(level);
CREATE INDEX IF NOT EXISTS idx_items_type ON items(type);

CREATE TABLE IF NOT EXISTS recipes (
	id BIGINT PRIMARY KEY,
	item_id BIGINT NOT NULL,
	job_id BIGINT NOT NULL DEFAULT 0,
	job_name TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_recipes_item_id ON recipes(item_id);

CREATE TABLE IF NOT EXISTS recipe_ingredients (
	recipe_id BIGINT NOT NULL,
	item_id BIGINT NOT NULL,
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
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_import_runs_active_mode ON import_runs(mode)
WHERE status IN ('queued', 'running');
`
