package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"clipmark/internal/gateway"
	"clipmark/internal/services"
)

const annotationColumns = "id, annotator_id, batch_id, clip_folder, clip_position, global_index, was_watched, watch_time_ms, group_count, groups_json, clip_info_json, submitted_at, created_at, updated_at"

const insertAnnotation = `INSERT INTO annotations (
    annotator_id, batch_id, clip_folder, clip_position, global_index,
    was_watched, watch_time_ms, group_count, groups_json, clip_info_json,
    submitted_at, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Insert stores one record for annotatorID and returns it with its id.
func (s *Store) Insert(ctx context.Context, annotatorID string, record gateway.AnnotationRecord) (*Annotation, error) {
	args, err := s.insertArgs(annotatorID, "", record)
	if err != nil {
		return nil, err
	}
	res, err := s.execWithRetry(ctx, insertAnnotation, args...)
	if err != nil {
		return nil, fmt.Errorf("insert annotation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.Get(ctx, id)
}

// InsertBatch stores every record of a session summary in one transaction
// tagged with a shared batch id. Either all records are stored or none.
func (s *Store) InsertBatch(ctx context.Context, annotatorID string, records []gateway.AnnotationRecord) (string, []int64, error) {
	if len(records) == 0 {
		return "", nil, services.Wrap(services.ErrValidation, "store", "insert batch", "no annotations in batch", nil)
	}
	batchID := uuid.NewString()
	rows := make([][]any, 0, len(records))
	for i, record := range records {
		args, err := s.insertArgs(annotatorID, batchID, record)
		if err != nil {
			return "", nil, fmt.Errorf("annotation %d: %w", i+1, err)
		}
		rows = append(rows, args)
	}

	var ids []int64
	err := s.txWithRetry(ctx, func(tx *sql.Tx) error {
		ids = ids[:0]
		stmt, err := tx.PrepareContext(ctx, insertAnnotation)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, args := range rows {
			res, err := stmt.ExecContext(ctx, args...)
			if err != nil {
				return err
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return "", nil, fmt.Errorf("insert batch: %w", err)
	}
	return batchID, ids, nil
}

func (s *Store) insertArgs(annotatorID, batchID string, record gateway.AnnotationRecord) ([]any, error) {
	annotatorID = strings.TrimSpace(annotatorID)
	if annotatorID == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "insert", "annotator id is required", nil)
	}
	if err := record.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "store", "insert", "invalid annotation", err)
	}
	groups := record.Groups
	if groups == nil {
		groups = []gateway.Group{}
	}
	groupsJSON, err := json.Marshal(groups)
	if err != nil {
		return nil, fmt.Errorf("marshal groups: %w", err)
	}
	clipInfoJSON, err := json.Marshal(record.ClipInfo)
	if err != nil {
		return nil, fmt.Errorf("marshal clip info: %w", err)
	}
	now := s.now().UTC().Format(time.RFC3339Nano)
	return []any{
		annotatorID,
		nullableString(batchID),
		record.ClipFolder,
		record.ClipPosition,
		record.GlobalIndex,
		boolToInt(record.WasWatched),
		record.TotalWatchTimeMs,
		record.GroupCount,
		string(groupsJSON),
		string(clipInfoJSON),
		nullableTime(record.Timestamp),
		now,
		now,
	}, nil
}

// Get fetches an annotation by id. It returns nil when no row matches.
func (s *Store) Get(ctx context.Context, id int64) (*Annotation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+annotationColumns+` FROM annotations WHERE id = ?`, id)
	annotation, err := scanAnnotation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get annotation: %w", err)
	}
	return annotation, nil
}

// List returns annotations matching filter in insertion order.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Annotation, error) {
	query := `SELECT ` + annotationColumns + ` FROM annotations`
	var (
		clauses []string
		args    []any
	)
	if v := strings.TrimSpace(filter.AnnotatorID); v != "" {
		clauses = append(clauses, "annotator_id = ?")
		args = append(args, v)
	}
	if v := strings.TrimSpace(filter.ClipFolder); v != "" {
		clauses = append(clauses, "clip_folder = ?")
		args = append(args, v)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close()

	var out []*Annotation
	for rows.Next() {
		annotation, err := scanAnnotation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		out = append(out, annotation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotations: %w", err)
	}
	return out, nil
}

// GlobalIndexesFor returns the distinct global indexes annotatorID has
// submitted, ascending.
func (s *Store) GlobalIndexesFor(ctx context.Context, annotatorID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT global_index FROM annotations WHERE annotator_id = ? ORDER BY global_index`,
		annotatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("query global indexes: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, fmt.Errorf("scan global index: %w", err)
		}
		out = append(out, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate global indexes: %w", err)
	}
	return out, nil
}

// CountAtGlobalIndex returns how many distinct annotators submitted the clip
// at globalIndex.
func (s *Store) CountAtGlobalIndex(ctx context.Context, globalIndex int) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT annotator_id) FROM annotations WHERE global_index = ?`,
		globalIndex,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count annotations: %w", err)
	}
	return count, nil
}

// Stats summarizes stored annotations.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var (
		stats   Stats
		lastRaw sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT
        COUNT(1),
        COUNT(DISTINCT annotator_id),
        COUNT(DISTINCT clip_folder),
        COUNT(DISTINCT batch_id),
        MAX(created_at)
    FROM annotations`).Scan(&stats.Annotations, &stats.Annotators, &stats.Clips, &stats.Batches, &lastRaw)
	if err != nil {
		return Stats{}, fmt.Errorf("annotation stats: %w", err)
	}
	if lastRaw.Valid {
		if last, err := parseTimeString(lastRaw.String); err == nil {
			stats.LastCreated = &last
		}
	}
	return stats, nil
}
