package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const placementTable = "placement_events"

// placementRepo implements PlacementRepo on the placement_events table.
type placementRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *placementRepo) AppendPlacement(ctx context.Context, data PlacementEventData) (int64, error) {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}

	scores, err := json.Marshal(data.Scores)
	if err != nil {
		return 0, fmt.Errorf("marshal placement scores: %w", err)
	}
	ts := data.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(placementTable).
		Columns("record_id", "sequence", "timestamp", "level", "scores").
		Values(data.RecordID, seqNum, ts.UTC().UnixNano(), data.Level, string(scores)).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return 0, fmt.Errorf("save placement event: %w", err)
	}
	return seqNum, nil
}

func (r *placementRepo) QueryPlacements(ctx context.Context, opts QueryOpts) ([]PlacementEventRecord, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select("record_id", "sequence", "timestamp", "level", "scores").
		From(entsql.Table(placementTable)).
		OrderBy(entsql.Desc("sequence"))

	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("timestamp", opts.From.UTC().UnixNano()))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("timestamp", opts.To.UTC().UnixNano()))
	}
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	if opts.Limit > 0 {
		sel = sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query placement events: %w", err)
	}
	defer rows.Close()

	var records []PlacementEventRecord
	for rows.Next() {
		var (
			rec    PlacementEventRecord
			ts     int64
			scores string
		)
		if err := rows.Scan(&rec.RecordID, &rec.Sequence, &ts, &rec.Level, &scores); err != nil {
			return nil, fmt.Errorf("scan placement event: %w", err)
		}
		if err := json.Unmarshal([]byte(scores), &rec.Scores); err != nil {
			return nil, fmt.Errorf("unmarshal placement scores: %w", err)
		}
		rec.Timestamp = time.Unix(0, ts).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query placement events: %w", err)
	}
	return records, nil
}
