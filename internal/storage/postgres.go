// Package storage is the boundary to the Postgres collaborator. It owns
// upsert atomicity and the full-text index; ranking math stays outside.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"newspulse/internal/feed"
	"newspulse/internal/rank"
	"newspulse/internal/recommend"
)

type Store struct {
	db *sql.DB
}

// Open connects, pings and ensures the schema exists.
func Open(connectionString string) (*Store, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("postgres store connected")
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		link TEXT NOT NULL UNIQUE,
		published_date TIMESTAMPTZ NOT NULL,
		image TEXT,
		source TEXT NOT NULL,
		topic TEXT NOT NULL,
		embedding DOUBLE PRECISION[],
		tsv TSVECTOR
	);
	CREATE INDEX IF NOT EXISTS articles_tsv_idx ON articles USING GIN (tsv);
	CREATE INDEX IF NOT EXISTS articles_published_idx ON articles (published_date DESC);

	CREATE TABLE IF NOT EXISTS user_history (
		user_id BIGINT NOT NULL,
		article_id BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		watched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, article_id)
	);
	CREATE INDEX IF NOT EXISTS user_history_watched_idx ON user_history (user_id, watched_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// UpsertArticles writes a batch with upsert-by-link semantics: an existing
// row is only overwritten when the incoming publish time is strictly newer,
// so re-ingesting the same or older data is a no-op.
func (s *Store) UpsertArticles(ctx context.Context, articles []feed.Article) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO articles (title, link, published_date, image, source, topic, embedding, tsv)
		VALUES ($1, $2, $3, $4, $5, $6, $7, to_tsvector('english', $1))
		ON CONFLICT (link) DO UPDATE SET
			title = EXCLUDED.title,
			published_date = EXCLUDED.published_date,
			image = EXCLUDED.image,
			source = EXCLUDED.source,
			topic = EXCLUDED.topic,
			embedding = EXCLUDED.embedding,
			tsv = EXCLUDED.tsv
		WHERE EXCLUDED.published_date > articles.published_date`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, a := range articles {
		var image sql.NullString
		if a.Image != "" {
			image = sql.NullString{String: a.Image, Valid: true}
		}
		var embedding interface{}
		if len(a.Embedding) > 0 {
			embedding = pq.Array(a.Embedding)
		}
		if _, err := stmt.ExecContext(ctx, a.Title, a.Link, a.Published, image, a.Source, a.Topic, embedding); err != nil {
			return fmt.Errorf("upsert %s: %w", a.Link, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// SearchCandidates returns every article with its lexical rank for the query,
// computed by the store's full-text index (0 when nothing matches).
func (s *Store) SearchCandidates(ctx context.Context, query string) ([]rank.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, link, published_date, COALESCE(image, ''), source, topic,
		       COALESCE(embedding, '{}'),
		       COALESCE(ts_rank_cd(tsv, plainto_tsquery('english', $1)), 0)
		FROM articles`, query)
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows, true)
}

// UnseenCandidates returns embeddable articles outside the given ID set, for
// recommendation ranking.
func (s *Store) UnseenCandidates(ctx context.Context, excludeIDs []int64) ([]rank.Candidate, error) {
	if excludeIDs == nil {
		excludeIDs = []int64{}
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, link, published_date, COALESCE(image, ''), source, topic, embedding
		FROM articles
		WHERE embedding IS NOT NULL AND NOT (id = ANY($1))`, pq.Array(excludeIDs))
	if err != nil {
		return nil, fmt.Errorf("unseen candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows, false)
}

func scanCandidates(rows *sql.Rows, withLexical bool) ([]rank.Candidate, error) {
	var result []rank.Candidate
	for rows.Next() {
		var c rank.Candidate
		var embedding pq.Float64Array

		dest := []interface{}{&c.ID, &c.Title, &c.Link, &c.Published, &c.Image, &c.Source, &c.Topic, &embedding}
		if withLexical {
			dest = append(dest, &c.Lexical)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.Embedding = []float64(embedding)
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return result, nil
}

// LatestHistory returns the user's most recent distinct-article interactions,
// newest first, joined with each article's embedding.
func (s *Store) LatestHistory(ctx context.Context, userID int64, n int) ([]recommend.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, COALESCE(a.embedding, '{}'), h.watched_at
		FROM user_history h
		JOIN articles a ON a.id = h.article_id
		WHERE h.user_id = $1
		ORDER BY h.watched_at DESC
		LIMIT $2`, userID, n)
	if err != nil {
		return nil, fmt.Errorf("latest history: %w", err)
	}
	defer rows.Close()

	var result []recommend.HistoryEntry
	for rows.Next() {
		var entry recommend.HistoryEntry
		var embedding pq.Float64Array
		if err := rows.Scan(&entry.ArticleID, &embedding, &entry.WatchedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entry.Embedding = []float64(embedding)
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return result, nil
}

// RecordView appends a history row, or bumps watched_at when the user views
// the same article again; no duplicate rows are created.
func (s *Store) RecordView(ctx context.Context, userID, articleID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_history (user_id, article_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, article_id) DO UPDATE SET watched_at = now()`,
		userID, articleID)
	if err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	return nil
}
