// Package storage persists extracted records as JSON documents in named
// collections backed by Postgres.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/mitchwxyz/DomainTools/internal/config"
	"github.com/mitchwxyz/DomainTools/pkg/types"
)

// Collection names used by the scraper.
const (
	CollectionJSONLD = "jsonld"
	CollectionText   = "text"
)

// Document is one stored record: an opaque JSON payload keyed by the page
// URL it came from. Documents are immutable once stored.
type Document struct {
	URL       string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Store appends and queries JSON documents in named collections.
type Store struct {
	db          *sql.DB
	autoMigrate bool
}

// Open connects to the configured database, optionally creating it and its
// schema when missing.
func Open(cfg config.SQLConfig) (*Store, error) {
	if cfg.Driver == "" || cfg.DSN == "" {
		return nil, errors.New("sql config missing driver or dsn")
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sql connection: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if cfg.CreateIfMissing && shouldAttemptCreateDatabase(cfg.Driver, err) {
			_ = db.Close()
			if err := createDatabase(ctx, cfg); err != nil {
				return nil, err
			}
			db, err = sql.Open(cfg.Driver, cfg.DSN)
			if err != nil {
				return nil, fmt.Errorf("open sql connection: %w", err)
			}
			if err := db.PingContext(ctx); err != nil {
				return nil, fmt.Errorf("ping sql connection: %w", err)
			}
		} else {
			return nil, fmt.Errorf("ping sql connection: %w", err)
		}
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime.Duration > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime.Duration)
	}

	store := &Store{db: db, autoMigrate: cfg.AutoMigrate}
	if cfg.AutoMigrate {
		if err := store.ensureSchema(context.Background()); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// Append durably inserts documents into a collection.
func (s *Store) Append(ctx context.Context, collection string, docs ...Document) error {
	if s == nil || s.db == nil || len(docs) == 0 {
		return nil
	}
	if err := s.insert(ctx, collection, docs); err != nil {
		if s.autoMigrate && isUndefinedTableErr(err) {
			if schemaErr := s.ensureSchema(ctx); schemaErr != nil {
				return fmt.Errorf("ensure schema: %w", schemaErr)
			}
			if retryErr := s.insert(ctx, collection, docs); retryErr != nil {
				return fmt.Errorf("insert documents: %w", retryErr)
			}
			return nil
		}
		return fmt.Errorf("insert documents: %w", err)
	}
	return nil
}

func (s *Store) insert(ctx context.Context, collection string, docs []Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (collection, url, payload, created_at) VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, doc := range docs {
		createdAt := doc.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, collection, doc.URL, []byte(doc.Payload), createdAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// All returns every document of a collection in insertion order.
func (s *Store) All(ctx context.Context, collection string) ([]Document, error) {
	return s.query(ctx,
		`SELECT url, payload, created_at FROM documents WHERE collection = $1 ORDER BY id`,
		collection)
}

// URLContains returns the documents of a collection whose URL contains the
// given substring, used to filter records by domain.
func (s *Store) URLContains(ctx context.Context, collection, substring string) ([]Document, error) {
	return s.query(ctx,
		`SELECT url, payload, created_at FROM documents WHERE collection = $1 AND strpos(url, $2) > 0 ORDER BY id`,
		collection, substring)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var payload []byte
		if err := rows.Scan(&doc.URL, &payload, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.Payload = json.RawMessage(payload)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Close closes the underlying DB connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil || !s.autoMigrate {
		return nil
	}
	schemaCtx := ctx
	if schemaCtx == nil || schemaCtx.Err() != nil {
		schemaCtx = context.Background()
	}
	schemaCtx, cancel := context.WithTimeout(schemaCtx, 10*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
		    id BIGSERIAL PRIMARY KEY,
		    collection TEXT NOT NULL,
		    url TEXT NOT NULL,
		    payload JSONB NOT NULL,
		    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents (collection)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection_url ON documents (collection, url)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(schemaCtx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func shouldAttemptCreateDatabase(driver string, err error) bool {
	if !strings.EqualFold(driver, "postgres") {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "3D000"
	}
	return strings.Contains(strings.ToLower(err.Error()), "does not exist")
}

func createDatabase(ctx context.Context, cfg config.SQLConfig) error {
	parsed, err := url.Parse(cfg.DSN)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}
	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return errors.New("dsn missing database name")
	}
	if strings.EqualFold(dbName, "postgres") {
		return fmt.Errorf("target database %q cannot be auto-created", dbName)
	}
	parsed.Path = "/postgres"
	adminDB, err := sql.Open(cfg.Driver, parsed.String())
	if err != nil {
		return fmt.Errorf("connect admin database: %w", err)
	}
	defer adminDB.Close()
	if err := adminDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping admin database: %w", err)
	}
	stmt := fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName))
	if _, err := adminDB.ExecContext(ctx, stmt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "42P04" {
			return nil
		}
		return fmt.Errorf("create database %q: %w", dbName, err)
	}
	return nil
}

func isUndefinedTableErr(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "relation") && strings.Contains(lower, "does not exist")
}

// StoreJSONLD persists structured-data records, one document per block.
func (s *Store) StoreJSONLD(ctx context.Context, records []types.JSONLDRecord) error {
	docs := make([]Document, 0, len(records))
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal jsonld record: %w", err)
		}
		docs = append(docs, Document{URL: rec.URL, Payload: payload, CreatedAt: rec.CrawledAt})
	}
	return s.Append(ctx, CollectionJSONLD, docs...)
}

// StoreText persists one page's text record.
func (s *Store) StoreText(ctx context.Context, record types.TextRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal text record: %w", err)
	}
	return s.Append(ctx, CollectionText, Document{
		URL:       record.URL,
		Payload:   payload,
		CreatedAt: record.CrawledAt,
	})
}

// LoadJSONLD returns stored structured-data records, optionally filtered to
// URLs containing domain.
func (s *Store) LoadJSONLD(ctx context.Context, domain string) ([]types.JSONLDRecord, error) {
	docs, err := s.load(ctx, CollectionJSONLD, domain)
	if err != nil {
		return nil, err
	}
	records := make([]types.JSONLDRecord, 0, len(docs))
	for _, doc := range docs {
		var rec types.JSONLDRecord
		if err := json.Unmarshal(doc.Payload, &rec); err != nil {
			return nil, fmt.Errorf("decode jsonld record for %s: %w", doc.URL, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// LoadText returns stored text records, optionally filtered to URLs
// containing domain.
func (s *Store) LoadText(ctx context.Context, domain string) ([]types.TextRecord, error) {
	docs, err := s.load(ctx, CollectionText, domain)
	if err != nil {
		return nil, err
	}
	records := make([]types.TextRecord, 0, len(docs))
	for _, doc := range docs {
		var rec types.TextRecord
		if err := json.Unmarshal(doc.Payload, &rec); err != nil {
			return nil, fmt.Errorf("decode text record for %s: %w", doc.URL, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Store) load(ctx context.Context, collection, domain string) ([]Document, error) {
	if strings.TrimSpace(domain) == "" {
		return s.All(ctx, collection)
	}
	return s.URLContains(ctx, collection, domain)
}
