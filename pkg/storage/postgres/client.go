// Package postgres provides a PostgreSQL NodeStore for shared or
// long-running simulations. Embeddings, keywords, and chat fillings are
// stored as JSONB.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/simulacra-labs/simulacra-go/pkg/storage"
)

// Client implements storage.NodeStore backed by PostgreSQL.
type Client struct {
	db    *sql.DB
	table string
}

// Config configures the PostgreSQL store.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string

	// SSLMode is the libpq sslmode value. Defaults to "disable".
	SSLMode string

	// Table is the table name. Defaults to "memory_nodes".
	Table string
}

// NewClient connects to PostgreSQL and ensures the schema exists.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("postgres: ping: %w", err)
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
			id BIGINT NOT NULL,
			kind TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expiration TIMESTAMPTZ,
			subject TEXT,
			predicate TEXT,
			object TEXT,
			description TEXT NOT NULL,
			keywords JSONB,
			poignancy DOUBLE PRECISION NOT NULL,
			embedding JSONB,
			embedding_key TEXT,
			last_accessed TIMESTAMPTZ,
			filling JSONB,
			PRIMARY KEY (persona, id)
		)
	`, c.table)
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("postgres: init tables: %w", err)
	}
	return nil
}

// SaveNodes upserts records by (persona, id) inside one transaction.
func (c *Client) SaveNodes(ctx context.Context, records []*storage.Record) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s
		(persona, id, kind, created_at, expiration, subject, predicate, object,
		 description, keywords, poignancy, embedding, embedding_key, last_accessed, filling)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (persona, id) DO UPDATE SET
			description = EXCLUDED.description,
			keywords = EXCLUDED.keywords,
			last_accessed = EXCLUDED.last_accessed
	`, c.table)

	for _, rec := range records {
		keywordsJSON, err := json.Marshal(rec.Keywords)
		if err != nil {
			return fmt.Errorf("postgres: marshal keywords: %w", err)
		}
		embeddingJSON, err := json.Marshal(rec.Embedding)
		if err != nil {
			return fmt.Errorf("postgres: marshal embedding: %w", err)
		}
		fillingJSON, err := json.Marshal(rec.Filling)
		if err != nil {
			return fmt.Errorf("postgres: marshal filling: %w", err)
		}

		_, err = tx.ExecContext(ctx, query,
			rec.Persona, rec.ID, rec.Kind, rec.CreatedAt, rec.Expiration,
			rec.Subject, rec.Predicate, rec.Object, rec.Description,
			keywordsJSON, rec.Poignancy, embeddingJSON,
			rec.EmbeddingKey, rec.LastAccessed, fillingJSON,
		)
		if err != nil {
			return fmt.Errorf("postgres: save node %d: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// LoadNodes returns all records for a persona ordered by id.
func (c *Client) LoadNodes(ctx context.Context, persona string) ([]*storage.Record, error) {
	query := fmt.Sprintf(`
		SELECT persona, id, kind, created_at, expiration, subject, predicate, object,
		       description, keywords, poignancy, embedding, embedding_key, last_accessed, filling
		FROM %s WHERE persona = $1 ORDER BY id
	`, c.table)

	rows, err := c.db.QueryContext(ctx, query, persona)
	if err != nil {
		return nil, fmt.Errorf("postgres: load nodes: %w", err)
	}
	defer rows.Close()

	var records []*storage.Record
	for rows.Next() {
		var (
			rec          storage.Record
			expiration   sql.NullTime
			lastAccessed sql.NullTime
			keywordsJSON []byte
			embedJSON    []byte
			fillingJSON  []byte
		)
		err := rows.Scan(
			&rec.Persona, &rec.ID, &rec.Kind, &rec.CreatedAt, &expiration,
			&rec.Subject, &rec.Predicate, &rec.Object, &rec.Description,
			&keywordsJSON, &rec.Poignancy, &embedJSON, &rec.EmbeddingKey,
			&lastAccessed, &fillingJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}

		if expiration.Valid {
			t := expiration.Time
			rec.Expiration = &t
		}
		if lastAccessed.Valid {
			rec.LastAccessed = lastAccessed.Time
		}
		if len(keywordsJSON) > 0 {
			if err := json.Unmarshal(keywordsJSON, &rec.Keywords); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal keywords: %w", err)
			}
		}
		if len(embedJSON) > 0 {
			if err := json.Unmarshal(embedJSON, &rec.Embedding); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal embedding: %w", err)
			}
		}
		if len(fillingJSON) > 0 {
			if err := json.Unmarshal(fillingJSON, &rec.Filling); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal filling: %w", err)
			}
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// DeletePersona removes all records for a persona.
func (c *Client) DeletePersona(ctx context.Context, persona string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE persona = $1`, c.table)
	if _, err := c.db.ExecContext(ctx, query, persona); err != nil {
		return fmt.Errorf("postgres: delete persona: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	return c.db.Close()
}
