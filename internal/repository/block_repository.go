package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// BlockRepository persists the ordered block grid for a term — the small
// (typically 5-10 entry) set of time-slot tags courses and requests are
// scheduled against.
type BlockRepository struct {
	db *sqlx.DB
}

// NewBlockRepository constructs the repository.
func NewBlockRepository(db *sqlx.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

type blockRow struct {
	Block string `db:"block"`
}

// ListByTerm returns a term's blocks in grid order.
func (r *BlockRepository) ListByTerm(ctx context.Context, termID string) ([]string, error) {
	const query = `SELECT block FROM term_blocks WHERE term_id = $1 ORDER BY ordinal ASC`
	var rows []blockRow
	if err := r.db.SelectContext(ctx, &rows, query, termID); err != nil {
		return nil, fmt.Errorf("list term blocks: %w", err)
	}
	blocks := make([]string, 0, len(rows))
	for _, row := range rows {
		blocks = append(blocks, row.Block)
	}
	return blocks, nil
}

// ReplaceForTerm deletes and re-inserts a term's block grid, preserving
// caller-supplied order as the ordinal.
func (r *BlockRepository) ReplaceForTerm(ctx context.Context, termID string, blocks []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM term_blocks WHERE term_id = $1`, termID); err != nil {
		return fmt.Errorf("clear term blocks: %w", err)
	}
	const insert = `INSERT INTO term_blocks (term_id, block, ordinal) VALUES ($1, $2, $3)`
	for i, block := range blocks {
		if _, err = tx.ExecContext(ctx, insert, termID, block, i); err != nil {
			return fmt.Errorf("insert term block: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit term blocks: %w", err)
	}
	return nil
}
