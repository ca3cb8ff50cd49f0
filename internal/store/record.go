package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const recordsTable = "records"

// recordRepo implements RecordRepo on the records table.
type recordRepo struct {
	drv *entsql.Driver
}

func (r *recordRepo) Get(ctx context.Context, key string) (*Record, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("data", "version", "updated_at").
		From(entsql.Table(recordsTable)).
		Where(entsql.EQ("key", key)).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query record %q: %w", key, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query record %q: %w", key, err)
		}
		return nil, nil
	}

	var (
		data    string
		version int64
		updated int64
	)
	if err := rows.Scan(&data, &version, &updated); err != nil {
		return nil, fmt.Errorf("scan record %q: %w", key, err)
	}
	return &Record{
		Key:       key,
		Data:      []byte(data),
		Version:   version,
		UpdatedAt: time.Unix(0, updated).UTC(),
	}, nil
}

func (r *recordRepo) Put(ctx context.Context, key string, data []byte, expected int64) (int64, error) {
	now := time.Now().UTC().UnixNano()
	next := expected + 1

	var query string
	var args []any
	if expected == 0 {
		query, args = entsql.Dialect(dialect.SQLite).
			Insert(recordsTable).
			Columns("key", "data", "version", "updated_at").
			Values(key, string(data), next, now).
			OnConflict(entsql.ConflictColumns("key"), entsql.DoNothing()).
			Query()
	} else {
		query, args = entsql.Dialect(dialect.SQLite).
			Update(recordsTable).
			Set("data", string(data)).
			Set("version", next).
			Set("updated_at", now).
			Where(entsql.And(
				entsql.EQ("key", key),
				entsql.EQ("version", expected),
			)).
			Query()
	}

	var res sql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		return 0, fmt.Errorf("put record %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("put record %q: %w", key, err)
	}
	if n == 0 {
		return 0, ErrVersionConflict
	}
	return next, nil
}

func (r *recordRepo) Delete(ctx context.Context, key string) error {
	query, args := entsql.Dialect(dialect.SQLite).
		Delete(recordsTable).
		Where(entsql.EQ("key", key)).
		Query()

	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("delete record %q: %w", key, err)
	}
	return nil
}
