// Package sqlite provides a SQLite NodeStore.
//
// SQLite suits local simulations: a single file, no server. Embeddings,
// keywords, and chat fillings are stored as JSON strings in TEXT columns.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/simulacra-labs/simulacra-go/pkg/storage"
)

// Client implements storage.NodeStore backed by a SQLite database file.
type Client struct {
	db    *sql.DB
	table string
}

// Config configures the SQLite store.
type Config struct {
	// DBPath is the path to the database file. Parent directories are
	// created as needed.
	DBPath string

	// Table is the table name. Defaults to "memory_nodes".
	Table string
}

// NewClient opens (creating if necessary) the SQLite store.
func NewClient(cfg *Config) (*Client, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	table := cfg.Table
	if table == "" {
		table = "memory_nodes"
	}

	client := &Client{db: db, table: table}
	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			persona TEXT NOT NULL,
			id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			expiration DATETIME,
			subject TEXT,
			predicate TEXT,
			object TEXT,
			description TEXT NOT NULL,
			keywords TEXT,
			poignancy REAL NOT NULL,
			embedding TEXT,
			embedding_key TEXT,
			last_accessed DATETIME,
			filling TEXT,
			PRIMARY KEY (persona, id)
		)
	`, c.table)
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("sqlite: init tables: %w", err)
	}
	return nil
}

// SaveNodes upserts records by (persona, id) inside one transaction.
func (c *Client) SaveNodes(ctx context.Context, records []*storage.Record) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s
		(persona, id, kind, created_at, expiration, subject, predicate, object,
		 description, keywords, poignancy, embedding, embedding_key, last_accessed, filling)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.table)

	for _, rec := range records {
		keywordsJSON, err := json.Marshal(rec.Keywords)
		if err != nil {
			return fmt.Errorf("sqlite: marshal keywords: %w", err)
		}
		embeddingJSON, err := json.Marshal(rec.Embedding)
		if err != nil {
			return fmt.Errorf("sqlite: marshal embedding: %w", err)
		}
		fillingJSON, err := json.Marshal(rec.Filling)
		if err != nil {
			return fmt.Errorf("sqlite: marshal filling: %w", err)
		}

		_, err = tx.ExecContext(ctx, query,
			rec.Persona, rec.ID, rec.Kind, rec.CreatedAt, rec.Expiration,
			rec.Subject, rec.Predicate, rec.Object, rec.Description,
			string(keywordsJSON), rec.Poignancy, string(embeddingJSON),
			rec.EmbeddingKey, rec.LastAccessed, string(fillingJSON),
		)
		if err != nil {
			return fmt.Errorf("sqlite: save node %d: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// LoadNodes returns all records for a persona ordered by id.
func (c *Client) LoadNodes(ctx context.Context, persona string) ([]*storage.Record, error) {
	query := fmt.Sprintf(`
		SELECT persona, id, kind, created_at, expiration, subject, predicate, object,
		       description, keywords, poignancy, embedding, embedding_key, last_accessed, filling
		FROM %s WHERE persona = ? ORDER BY id
	`, c.table)

	rows, err := c.db.QueryContext(ctx, query, persona)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load nodes: %w", err)
	}
	defer rows.Close()

	var records []*storage.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (*storage.Record, error) {
	var (
		rec          storage.Record
		expiration   sql.NullTime
		lastAccessed sql.NullTime
		keywordsJSON sql.NullString
		embedJSON    sql.NullString
		fillingJSON  sql.NullString
	)
	err := rows.Scan(
		&rec.Persona, &rec.ID, &rec.Kind, &rec.CreatedAt, &expiration,
		&rec.Subject, &rec.Predicate, &rec.Object, &rec.Description,
		&keywordsJSON, &rec.Poignancy, &embedJSON, &rec.EmbeddingKey,
		&lastAccessed, &fillingJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan: %w", err)
	}

	if expiration.Valid {
		t := expiration.Time
		rec.Expiration = &t
	}
	if lastAccessed.Valid {
		rec.LastAccessed = lastAccessed.Time
	}
	if keywordsJSON.Valid && keywordsJSON.String != "" {
		if err := json.Unmarshal([]byte(keywordsJSON.String), &rec.Keywords); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal keywords: %w", err)
		}
	}
	if embedJSON.Valid && embedJSON.String != "" {
		if err := json.Unmarshal([]byte(embedJSON.String), &rec.Embedding); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal embedding: %w", err)
		}
	}
	if fillingJSON.Valid && fillingJSON.String != "" {
		if err := json.Unmarshal([]byte(fillingJSON.String), &rec.Filling); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal filling: %w", err)
		}
	}
	return &rec, nil
}

// DeletePersona removes all records for a persona.
func (c *Client) DeletePersona(ctx context.Context, persona string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE persona = ?`, c.table)
	if _, err := c.db.ExecContext(ctx, query, persona); err != nil {
		return fmt.Errorf("sqlite: delete persona: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	return c.db.Close()
}
