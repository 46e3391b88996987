package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/huangsam/testhub/schema"
)

// Savepoint names used by the batch executor.
const (
	chunkSavepoint = "sp_chunk"
	rowSavepoint   = "sp_row"
)

// upsertSpec describes one multi-row upsert target.
type upsertSpec struct {
	table    string
	cols     []string
	conflict []string // Natural key columns
	update   []string // Columns refreshed on conflict
}

// batchRow is one row of a batch; key identifies it in skip reports.
type batchRow struct {
	key  string
	args []any
}

// batchResult counts what one executeBatches call did.
type batchResult struct {
	written   int
	batches   int
	fallbacks int
	skipped   []schema.SkippedRow
}

func (r *batchResult) addTo(stats *schema.PersistStats) {
	stats.Batches += r.batches
	stats.Fallbacks += r.fallbacks
	stats.Skipped = append(stats.Skipped, r.skipped...)
}

// chunkSize caps the configured batch size so a statement stays under the vendor's parameter limit.
func (s *SQLStore) chunkSize(cols int) int {
	size := s.opts.BatchSize
	if limit := s.d.maxParams / cols; size > limit {
		size = limit
	}
	return max(size, 1)
}

// executeBatches upserts rows in chunks. Each chunk runs inside a savepoint as one
// statement; when it fails with a duplicate error the chunk is rolled back and its
// rows run one by one, each in its own savepoint. Rows that still fail with a
// duplicate error are skipped. Any other error aborts.
func (s *SQLStore) executeBatches(ctx context.Context, tx *sql.Tx, spec upsertSpec, rows []batchRow) (batchResult, error) {
	var res batchResult
	size := s.chunkSize(len(spec.cols))
	single := s.d.rebind(s.d.upsert(spec.table, spec.cols, spec.conflict, spec.update, 1))

	for start := 0; start < len(rows); start += size {
		chunk := rows[start:min(start+size, len(rows))]
		res.batches++

		if err := s.savepoint(ctx, tx, chunkSavepoint); err != nil {
			return res, err
		}
		query := single
		if len(chunk) > 1 {
			query = s.d.rebind(s.d.upsert(spec.table, spec.cols, spec.conflict, spec.update, len(chunk)))
		}
		args := make([]any, 0, len(chunk)*len(spec.cols))
		for _, r := range chunk {
			args = append(args, r.args...)
		}

		_, err := tx.ExecContext(ctx, query, args...)
		if err == nil {
			res.written += len(chunk)
			if err := s.release(ctx, tx, chunkSavepoint); err != nil {
				return res, err
			}
			continue
		}
		if !s.d.isDuplicate(err) {
			return res, s.classify(fmt.Sprintf("upsert %s", spec.table), err)
		}

		if err := s.rollbackTo(ctx, tx, chunkSavepoint); err != nil {
			return res, err
		}
		res.fallbacks++
		for _, r := range chunk {
			if err := s.savepoint(ctx, tx, rowSavepoint); err != nil {
				return res, err
			}
			_, err := tx.ExecContext(ctx, single, r.args...)
			switch {
			case err == nil:
				res.written++
				if err := s.release(ctx, tx, rowSavepoint); err != nil {
					return res, err
				}
			case s.d.isDuplicate(err):
				if err := s.rollbackTo(ctx, tx, rowSavepoint); err != nil {
					return res, err
				}
				if err := s.release(ctx, tx, rowSavepoint); err != nil {
					return res, err
				}
				res.skipped = append(res.skipped, schema.SkippedRow{Table: spec.table, Key: r.key, Err: err})
			default:
				return res, s.classify(fmt.Sprintf("upsert %s row %s", spec.table, r.key), err)
			}
		}
		if err := s.release(ctx, tx, chunkSavepoint); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (s *SQLStore) savepoint(ctx context.Context, tx *sql.Tx, name string) error {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return s.classify("savepoint", err)
	}
	return nil
}

func (s *SQLStore) release(ctx context.Context, tx *sql.Tx, name string) error {
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return s.classify("release savepoint", err)
	}
	return nil
}

func (s *SQLStore) rollbackTo(ctx context.Context, tx *sql.Tx, name string) error {
	if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
		return s.classify("rollback to savepoint", err)
	}
	return nil
}
