package sqlite

import "context"

type sequenceRepo struct {
	db dbtx
}

// Next 原子地递增 (scope, day) 计数并返回新值，从 1 开始。
func (r *sequenceRepo) Next(ctx context.Context, scope, day string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO number_sequences(scope, day, last) VALUES(?, ?, 1)
         ON CONFLICT(scope, day) DO UPDATE SET last = number_sequences.last + 1
         RETURNING last`, scope, day).Scan(&n)
	return n, err
}
