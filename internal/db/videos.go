package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jonathan/mathmotion/internal/types"
)

const videoColumns = `id, title, prompt, options, script, status, video_url, thumbnail_url,
	duration_seconds, error_message, created_at, updated_at`

const uniqueViolation = "23505"

// CreateVideo inserts a PENDING record.
func (db *DB) CreateVideo(ctx context.Context, input NewVideo) (*types.VideoRecord, error) {
	optionsJSON, err := json.Marshal(input.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal options: %w", err)
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO videos (id, title, prompt, options, script, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+videoColumns,
		input.ID, input.Title, input.Prompt, optionsJSON, input.Script, string(types.VideoStatusPending),
	)
	video, err := scanVideo(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("failed to create video %s: %w", input.ID, ErrDuplicateID)
		}
		return nil, fmt.Errorf("failed to create video: %w", err)
	}
	return video, nil
}

// GetVideo retrieves a record by ID. It returns nil, nil when no record exists.
func (db *DB) GetVideo(ctx context.Context, id string) (*types.VideoRecord, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)
	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return video, nil
}

// ListVideos returns records newest first.
func (db *DB) ListVideos(ctx context.Context, filter ListFilter) ([]types.VideoRecord, error) {
	filter = filter.Normalized()

	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+videoColumns+` FROM videos
		 WHERE ($1::text IS NULL OR status = $1)
		 ORDER BY created_at DESC, id
		 LIMIT $2 OFFSET $3`,
		status, filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []types.VideoRecord
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, *video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate videos: %w", err)
	}
	return videos, nil
}

// MarkGenerating moves a PENDING record to GENERATING and stores the script being rendered.
func (db *DB) MarkGenerating(ctx context.Context, id, script string) error {
	return db.transition(ctx, id, types.VideoStatusGenerating,
		`script = $3`, script)
}

// MarkCompleted moves a GENERATING record to COMPLETED with its published URLs.
func (db *DB) MarkCompleted(ctx context.Context, id string, c Completion) error {
	return db.transition(ctx, id, types.VideoStatusCompleted,
		`video_url = $3, thumbnail_url = $4, duration_seconds = $5, error_message = NULL`,
		c.VideoURL, c.ThumbnailURL, c.Duration)
}

// MarkFailed moves a GENERATING record to FAILED, recording why.
func (db *DB) MarkFailed(ctx context.Context, id, message string) error {
	return db.transition(ctx, id, types.VideoStatusFailed,
		`error_message = $3`, message)
}

// transition applies set only when the current status may move to `to`.
// The guard lives in the UPDATE so concurrent writers cannot both win.
func (db *DB) transition(ctx context.Context, id string, to types.VideoStatus, set string, args ...any) error {
	sources := types.AllowedSources(to)
	allowed := make([]string, len(sources))
	for i, s := range sources {
		allowed[i] = string(s)
	}

	query := `UPDATE videos SET status = $2, ` + set + `, updated_at = NOW()
		 WHERE id = $1 AND status = ANY($` + fmt.Sprint(3+len(args)) + `::text[])`
	params := append([]any{id, string(to)}, args...)
	params = append(params, allowed)

	tag, err := db.pool.Exec(ctx, query, params...)
	if err != nil {
		return fmt.Errorf("failed to update video %s to %s: %w", id, to, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var current string
	err = db.pool.QueryRow(ctx, `SELECT status FROM videos WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to update video %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read video status: %w", err)
	}
	return &TransitionError{ID: id, From: types.VideoStatus(current), To: to}
}

func scanVideo(row pgx.Row) (*types.VideoRecord, error) {
	var (
		v           types.VideoRecord
		optionsJSON []byte
		status      string
	)
	err := row.Scan(&v.ID, &v.Title, &v.Prompt, &optionsJSON, &v.Script, &status,
		&v.VideoURL, &v.ThumbnailURL, &v.Duration, &v.ErrorMessage, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.Status = types.VideoStatus(status)
	if len(optionsJSON) > 0 {
		if err := json.Unmarshal(optionsJSON, &v.Options); err != nil {
			return nil, fmt.Errorf("failed to unmarshal options: %w", err)
		}
	}
	return &v, nil
}
