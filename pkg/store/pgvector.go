package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/xhad/ackaudit/internal/types"
)

type VectorStoreConfig struct {
	ConnString  string
	VectorDim   int
	TablePrefix string
}

// VectorStore keeps named collections of embeddings in Postgres, one table
// per collection, with cosine similarity search via pgvector.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

var _ types.VectorIndex = (*VectorStore)(nil)

var collectionName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func NewWithConfig(config VectorStoreConfig) (*VectorStore, error) {
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.TablePrefix == "" {
		config.TablePrefix = "vs_"
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if _, err := pool.Exec(context.Background(), "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create vector extension: %v", err)
	}

	return vs, nil
}

func (vs *VectorStore) tableName(collection string) (string, error) {
	if !collectionName.MatchString(collection) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCollection, collection)
	}
	return vs.config.TablePrefix + collection, nil
}

func (vs *VectorStore) CreateCollection(ctx context.Context, name string) error {
	table, err := vs.tableName(name)
	if err != nil {
		return err
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document TEXT,
			embedding vector(%d),
			metadata JSONB
		)`, table, vs.config.VectorDim)

	if _, err := vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		table, table)

	if _, err := vs.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

func (vs *VectorStore) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := vs.pool.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name LIKE $1`,
		vs.config.TablePrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		names = append(names, strings.TrimPrefix(table, vs.config.TablePrefix))
	}
	return names, rows.Err()
}

func (vs *VectorStore) DeleteCollection(ctx context.Context, name string) error {
	table, err := vs.tableName(name)
	if err != nil {
		return err
	}
	if _, err := vs.pool.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	return nil
}

func (vs *VectorStore) Count(ctx context.Context, name string) (int, error) {
	table, err := vs.tableName(name)
	if err != nil {
		return 0, err
	}
	var n int
	if err := vs.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count collection: %v", err)
	}
	return n, nil
}

func (vs *VectorStore) Add(ctx context.Context, name string, ids []string, vectors [][]float32, documents []string, metadatas []map[string]any) error {
	table, err := vs.tableName(name)
	if err != nil {
		return err
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	for _, v := range vectors {
		if len(v) != vs.config.VectorDim {
			return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), vs.config.VectorDim)
		}
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, document, embedding, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			document = EXCLUDED.document,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		table)

	for i := range ids {
		var doc string
		if documents != nil {
			doc = documents[i]
		}
		var meta map[string]any
		if metadatas != nil {
			meta = metadatas[i]
		}

		_, err = tx.Exec(ctx, stmt,
			ids[i],
			doc,
			pgvector.NewVector(vectors[i]),
			meta,
		)
		if err != nil {
			return fmt.Errorf("failed to insert record: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

func (vs *VectorStore) Query(ctx context.Context, name string, vector []float32, topK int, filter map[string]string) ([]types.QueryResult, error) {
	table, err := vs.tableName(name)
	if err != nil {
		return nil, err
	}
	if len(vector) != vs.config.VectorDim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), vs.config.VectorDim)
	}
	if topK < 1 {
		return nil, nil
	}

	args := []any{pgvector.NewVector(vector), topK}
	var where []string
	for k, v := range filter {
		args = append(args, k, v)
		where = append(where, fmt.Sprintf("metadata->>$%d = $%d", len(args)-1, len(args)))
	}

	query := fmt.Sprintf(`
		SELECT id, document, metadata, 1 - (embedding <=> $1) AS similarity
		FROM %s`, table)
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY embedding <=> $1\n\t\tLIMIT $2"

	rows, err := vs.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %v", err)
	}
	defer rows.Close()

	var results []types.QueryResult
	for rows.Next() {
		var r types.QueryResult
		if err := rows.Scan(&r.ID, &r.Document, &r.Metadata, &r.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}
