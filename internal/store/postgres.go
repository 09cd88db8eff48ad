// Package store provides the durable backends for the contact cache and the
// résumé embedding index.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/overdrive-recruitment/recruit-pilot/internal/contacts"
	"github.com/overdrive-recruitment/recruit-pilot/internal/matching"
)

// PostgresStore backs the contact cache (append-only audit history) and the
// résumé embedding index (pgvector) with a single connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var (
	_ contacts.Cache       = (*PostgresStore)(nil)
	_ matching.Index       = (*PostgresStore)(nil)
	_ matching.ResumeStore = (*PostgresStore)(nil)
)

// NewPostgresStore creates and verifies a pgxpool-backed store.
func NewPostgresStore(ctx context.Context, databaseURL string, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Get returns the newest current contact for the company. Superseded,
// invalidated and expired rows stay in the table for audit but are never
// returned.
func (s *PostgresStore) Get(ctx context.Context, companyID string) (*contacts.Contact, bool, error) {
	const query = `
		SELECT name, profile_url, title, resolved_at, expires_at, valid
		FROM decision_makers
		WHERE company_id = $1
		  AND superseded_at IS NULL
		  AND valid
		  AND expires_at > now()
		ORDER BY resolved_at DESC
		LIMIT 1`

	contact := &contacts.Contact{CompanyID: companyID}
	err := s.pool.QueryRow(ctx, query, companyID).Scan(
		&contact.Name,
		&contact.ProfileURL,
		&contact.Title,
		&contact.ResolvedAt,
		&contact.ExpiresAt,
		&contact.Valid,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select decision maker: %w", err)
	}

	return contact, true, nil
}

// Put inserts a fresh contact row and marks any prior current row as
// superseded, in one transaction so concurrent resolutions for the same
// company cannot lose an update.
func (s *PostgresStore) Put(ctx context.Context, companyID string, contact *contacts.Contact) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE decision_makers SET superseded_at = now() WHERE company_id = $1 AND superseded_at IS NULL`,
		companyID,
	); err != nil {
		return fmt.Errorf("supersede decision maker: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO decision_makers (company_id, name, profile_url, title, resolved_at, expires_at, valid)
		 VALUES ($1, $2, $3, $4, now(), now() + make_interval(secs => $5), true)`,
		companyID,
		contact.Name,
		contact.ProfileURL,
		contact.Title,
		contacts.ContactTTL.Seconds(),
	); err != nil {
		return fmt.Errorf("insert decision maker: %w", err)
	}

	return tx.Commit(ctx)
}

// Add upserts the embedding for resumeID into the pgvector table.
func (s *PostgresStore) Add(ctx context.Context, resumeID string, embedding []float64) error {
	if resumeID == "" {
		return errors.New("resume id is required")
	}
	if len(embedding) == 0 {
		return errors.New("embedding is required")
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO resume_embeddings (resume_id, embedding)
		 VALUES ($1, $2::vector)
		 ON CONFLICT (resume_id) DO UPDATE SET embedding = EXCLUDED.embedding, updated_at = now()`,
		resumeID,
		formatVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("upsert resume embedding: %w", err)
	}
	return nil
}

// Search returns up to topK résumés by cosine proximity to the query
// embedding, ties broken by resume id for deterministic ranking.
func (s *PostgresStore) Search(ctx context.Context, embedding []float64, topK int) ([]matching.Hit, error) {
	if len(embedding) == 0 {
		return nil, errors.New("query embedding is required")
	}
	if topK <= 0 {
		topK = matching.DefaultTopK
	}

	rows, err := s.pool.Query(ctx,
		`SELECT resume_id, 1 - (embedding <=> $1::vector) AS similarity
		 FROM resume_embeddings
		 ORDER BY embedding <=> $1::vector, resume_id
		 LIMIT $2`,
		formatVector(embedding),
		topK,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []matching.Hit
	for rows.Next() {
		var hit matching.Hit
		if err := rows.Scan(&hit.ResumeID, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search rows: %w", err)
	}

	return hits, nil
}

// GetResume loads the full résumé record for resumeID.
func (s *PostgresStore) GetResume(ctx context.Context, resumeID string) (*matching.Resume, error) {
	const query = `
		SELECT resume_id, candidate_name, text_content, skills, experience_years
		FROM resumes
		WHERE resume_id = $1`

	resume := &matching.Resume{}
	err := s.pool.QueryRow(ctx, query, resumeID).Scan(
		&resume.ResumeID,
		&resume.CandidateName,
		&resume.Text,
		&resume.Skills,
		&resume.ExperienceYears,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("resume not found: %s", resumeID)
	}
	if err != nil {
		return nil, fmt.Errorf("select resume: %w", err)
	}

	return resume, nil
}

// formatVector renders the embedding as a pgvector literal, e.g. [0.1,0.2].
func formatVector(embedding []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}
