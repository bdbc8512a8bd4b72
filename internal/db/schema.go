package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The service owns its schema: the original deployment ran against a
// schemaless document store, so there is no external migration tool to defer
// to. Every statement is idempotent.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
	email         TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS sessions (
	email         TEXT PRIMARY KEY,
	session_token TEXT NOT NULL,
	expiry        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS ratings (
	id         UUID PRIMARY KEY,
	email      TEXT NOT NULL,
	rating     INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS comments (
	id         UUID PRIMARY KEY,
	email      TEXT NOT NULL,
	comment    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS crop_growth_records (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL,
	photo_data    BYTEA,
	activity      TEXT NOT NULL DEFAULT '',
	growth_report TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS crop_predictions (
	id                   UUID PRIMARY KEY,
	email                TEXT NOT NULL,
	crop_type            TEXT NOT NULL,
	location             TEXT NOT NULL,
	planting_date        TEXT NOT NULL,
	soil_quality         TEXT NOT NULL,
	weather_conditions   TEXT NOT NULL,
	temperature          DOUBLE PRECISION NOT NULL,
	humidity             DOUBLE PRECISION NOT NULL,
	growth_status        TEXT NOT NULL,
	growth_reason        TEXT NOT NULL,
	best_planting_period TEXT NOT NULL,
	height_next_month    TEXT NOT NULL,
	next_month_status    TEXT NOT NULL,
	days_since_planting  INT NOT NULL,
	days_to_next_month   INT NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS irrigation_plans (
	id                   UUID PRIMARY KEY,
	email                TEXT NOT NULL,
	crop_type            TEXT NOT NULL,
	location             TEXT NOT NULL,
	planting_date        TEXT NOT NULL,
	growth_stage         TEXT NOT NULL,
	temperature          DOUBLE PRECISION NOT NULL,
	humidity             DOUBLE PRECISION NOT NULL,
	weather_conditions   TEXT NOT NULL,
	irrigation_frequency TEXT NOT NULL,
	water_amount         TEXT NOT NULL,
	reason               TEXT NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS posts (
	id         UUID PRIMARY KEY,
	email      TEXT NOT NULL,
	content    TEXT NOT NULL,
	likes      INT NOT NULL DEFAULT 0,
	dislikes   INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS post_comments (
	id         UUID PRIMARY KEY,
	post_id    UUID NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	email      TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS blockchain_records (
	id         UUID PRIMARY KEY,
	email      TEXT NOT NULL,
	data       TEXT NOT NULL,
	topic_id   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_crop_growth_records_email_created
	ON crop_growth_records (email, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_posts_created ON posts (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_post_comments_post ON post_comments (post_id, created_at);
`

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaDDL)
	return err
}
