// Package export persists a finished build in PostgreSQL so that postings
// and IDF weights can be queried with SQL.
package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS index_builds (
    build_id     UUID PRIMARY KEY,
    documents    INTEGER NOT NULL,
    terms        INTEGER NOT NULL,
    completed_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS index_documents (
    build_id UUID NOT NULL REFERENCES index_builds (build_id) ON DELETE CASCADE,
    doc_id   INTEGER NOT NULL,
    name     TEXT NOT NULL,
    PRIMARY KEY (build_id, doc_id)
);
CREATE TABLE IF NOT EXISTS index_postings (
    build_id UUID NOT NULL REFERENCES index_builds (build_id) ON DELETE CASCADE,
    term     TEXT NOT NULL,
    doc_ids  INTEGER[] NOT NULL,
    idf      DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (build_id, term)
);`

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "index-export"),
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating index schema: %w", err)
	}
	return nil
}

// SaveBuild writes the build summary, the document names and one row per
// term (postings plus IDF) in a single transaction.
func (s *Store) SaveBuild(ctx context.Context, e *indexer.Engine) error {
	sum := e.Summary()
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO index_builds (build_id, documents, terms, completed_at) VALUES ($1, $2, $3, $4)`,
			sum.BuildID, sum.Documents, sum.Terms, sum.CompletedAt,
		); err != nil {
			return fmt.Errorf("inserting build: %w", err)
		}

		docStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO index_documents (build_id, doc_id, name) VALUES ($1, $2, $3)`)
		if err != nil {
			return fmt.Errorf("preparing document insert: %w", err)
		}
		defer docStmt.Close()
		for _, d := range e.Corpus().Documents() {
			if _, err := docStmt.ExecContext(ctx, sum.BuildID, d.ID, d.Name); err != nil {
				return fmt.Errorf("inserting document %d: %w", d.ID, err)
			}
		}

		postStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO index_postings (build_id, term, doc_ids, idf) VALUES ($1, $2, $3, $4)`)
		if err != nil {
			return fmt.Errorf("preparing postings insert: %w", err)
		}
		defer postStmt.Close()
		idf := e.Model().IDF
		for _, entry := range e.Index().Entries() {
			ids := make([]int64, len(entry.DocIDs))
			for i, id := range entry.DocIDs {
				ids[i] = int64(id)
			}
			if _, err := postStmt.ExecContext(ctx, sum.BuildID, entry.Term, pq.Array(ids), idf[entry.Term]); err != nil {
				return fmt.Errorf("inserting postings for %q: %w", entry.Term, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving build %s: %w", sum.BuildID, err)
	}
	s.logger.Info("build exported to postgres",
		"build_id", sum.BuildID,
		"documents", sum.Documents,
		"terms", sum.Terms,
	)
	return nil
}

// Postings returns the stored posting list of term for a build, or an
// empty list when the term is absent.
func (s *Store) Postings(ctx context.Context, buildID, term string) ([]int, error) {
	var ids pq.Int64Array
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT doc_ids FROM index_postings WHERE build_id = $1 AND term = $2`,
		buildID, term,
	).Scan(&ids)
	if errors.Is(err, sql.ErrNoRows) {
		return []int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying postings for %q: %w", term, err)
	}
	return docIDs(ids), nil
}

func docIDs(ids pq.Int64Array) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}
