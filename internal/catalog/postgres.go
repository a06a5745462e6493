package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the table PostgresStore reads when none is configured.
// It holds one JSONB document per row in a column named doc.
const DefaultTable = "services"

// querier is the subset of *pgxpool.Pool used by PostgresStore.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore reads and writes service documents stored as JSONB rows.
type PostgresStore struct {
	db    querier
	table string
}

// NewPostgresPool opens a pgx connection pool for the catalog database.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolCfg.MaxConns = 4
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewPostgresStore creates a store over pool reading from table.
// An empty table name selects DefaultTable.
func NewPostgresStore(pool *pgxpool.Pool, table string) *PostgresStore {
	return newPostgresStore(pool, table)
}

func newPostgresStore(db querier, table string) *PostgresStore {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresStore{db: db, table: table}
}

// Load implements Store. Rows that fail to decode abort the load so a corrupt
// catalog is never served partially.
func (s *PostgresStore) Load(ctx context.Context) ([]Service, error) {
	query := fmt.Sprintf(`SELECT doc FROM %s ORDER BY doc->>'_id'`, pgx.Identifier{s.table}.Sanitize())

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan service row: %w", err)
		}
		var svc Service
		if err := json.Unmarshal(raw, &svc); err != nil {
			return nil, fmt.Errorf("decode service document: %w", err)
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service rows: %w", err)
	}
	return services, nil
}

// EnsureSchema creates the catalog table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id         text PRIMARY KEY,
	doc        jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`, pgx.Identifier{s.table}.Sanitize())
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Save upserts services by ID after normalizing their plan order. It returns
// the number of documents written. Services without an ID are skipped.
func (s *PostgresStore) Save(ctx context.Context, services []Service) (int, error) {
	upsert := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`, pgx.Identifier{s.table}.Sanitize())

	written := 0
	for _, svc := range services {
		if svc.ID == "" {
			continue
		}
		normalized, _ := Normalize(svc)
		doc, err := json.Marshal(normalized)
		if err != nil {
			return written, fmt.Errorf("encode service %s: %w", svc.ID, err)
		}
		if _, err := s.db.Exec(ctx, upsert, svc.ID, string(doc)); err != nil {
			return written, fmt.Errorf("upsert service %s: %w", svc.ID, err)
		}
		written++
	}
	return written, nil
}

func (s *PostgresStore) String() string {
	return "postgres:" + s.table
}
