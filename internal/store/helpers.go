package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clipmark/internal/gateway"
)

func scanAnnotation(scanner interface{ Scan(dest ...any) error }) (*Annotation, error) {
	var (
		a           Annotation
		batchID     sql.NullString
		wasWatched  int64
		groupsRaw   string
		clipInfoRaw string
		submitted   sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&a.ID,
		&a.AnnotatorID,
		&batchID,
		&a.Record.ClipFolder,
		&a.Record.ClipPosition,
		&a.Record.GlobalIndex,
		&wasWatched,
		&a.Record.TotalWatchTimeMs,
		&a.Record.GroupCount,
		&groupsRaw,
		&clipInfoRaw,
		&submitted,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	a.BatchID = batchID.String
	a.Record.WasWatched = wasWatched != 0
	a.Record.Groups = []gateway.Group{}
	if err := json.Unmarshal([]byte(groupsRaw), &a.Record.Groups); err != nil {
		return nil, fmt.Errorf("decode groups for annotation %d: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(clipInfoRaw), &a.Record.ClipInfo); err != nil {
		return nil, fmt.Errorf("decode clip info for annotation %d: %w", a.ID, err)
	}
	if submitted.Valid {
		if ts, err := parseTimeString(submitted.String); err == nil {
			a.Record.Timestamp = ts
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		a.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		a.UpdatedAt = updated
	}
	return &a, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
