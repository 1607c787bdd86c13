package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/BKrowchuk/Horizon/core"
)

// ---------------- PgVector backend ----------------

// PgVectorBackend mirrors chunk rows into Postgres with the pgvector
// extension. Distances are squared L2 so they line up with the flat index.
type PgVectorBackend struct {
	pool *pgxpool.Pool
}

func NewPgVectorBackend(ctx context.Context, dbURL string) (*PgVectorBackend, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	b := &PgVectorBackend{pool: pool}
	if err := b.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

func (b *PgVectorBackend) Name() string { return "pgvector" }

func (b *PgVectorBackend) ensureTable(ctx context.Context) error {
	if _, err := b.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	chunksQuery := `
		CREATE TABLE IF NOT EXISTS meeting_chunks (
			id SERIAL PRIMARY KEY,
			meeting_id VARCHAR(255) NOT NULL,
			chunk_id INT NOT NULL,
			text TEXT NOT NULL,
			embedding vector(1536),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(meeting_id, chunk_id)
		);
	`
	if _, err := b.pool.Exec(ctx, chunksQuery); err != nil {
		return fmt.Errorf("create meeting_chunks table: %w", err)
	}
	return nil
}

// Upsert replaces the meeting's rows wholesale. Rebuilds can shrink the
// chunk count, so a plain ON CONFLICT upsert would leave stale tails behind.
func (b *PgVectorBackend) Upsert(ctx context.Context, meetingID string, records []core.ChunkRecord) error {
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM meeting_chunks WHERE meeting_id = $1", meetingID); err != nil {
		return fmt.Errorf("clear previous chunks: %w", err)
	}

	for _, rec := range records {
		vec := pgvector.NewVector(rec.Embedding)
		_, err := tx.Exec(ctx, `
			INSERT INTO meeting_chunks (meeting_id, chunk_id, text, embedding)
			VALUES ($1, $2, $3, $4)
		`, meetingID, rec.ChunkID, rec.Text, vec)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", rec.ChunkID, err)
		}
	}

	return tx.Commit(ctx)
}

func (b *PgVectorBackend) Query(ctx context.Context, meetingID string, vector []float32, topK int) ([]BackendHit, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	vec := pgvector.NewVector(vector)

	// <-> is Euclidean distance; square it so scores match the flat index.
	rows, err := b.pool.Query(ctx, `
		SELECT chunk_id, text, power(embedding <-> $1, 2) AS distance
		FROM meeting_chunks
		WHERE meeting_id = $2
		ORDER BY embedding <-> $1, chunk_id
		LIMIT $3
	`, vec, meetingID, topK)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var hits []BackendHit
	for rows.Next() {
		var chunkID int
		var text string
		var distance float64
		if err := rows.Scan(&chunkID, &text, &distance); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		hits = append(hits, BackendHit{ChunkID: chunkID, Text: text, Distance: float32(distance)})
	}
	return hits, rows.Err()
}

func (b *PgVectorBackend) Delete(ctx context.Context, meetingID string) error {
	_, err := b.pool.Exec(ctx, "DELETE FROM meeting_chunks WHERE meeting_id = $1", meetingID)
	return err
}

func (b *PgVectorBackend) Close() error {
	b.pool.Close()
	return nil
}
