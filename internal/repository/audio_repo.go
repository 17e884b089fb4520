package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"yomiage/internal/audio"
	"yomiage/internal/database"
)

// AudioRepository persists synthesized clips so the same phrase is only
// synthesized once across restarts. It satisfies audio.Store.
type AudioRepository struct {
	db database.DBTX
}

func NewAudioRepository(db database.DBTX) *AudioRepository {
	return &AudioRepository{db: db}
}

// ClipStats summarizes the cache contents
type ClipStats struct {
	Clips int64
	Bytes int64
}

// Get returns the stored clip for key, if any
func (r *AudioRepository) Get(ctx context.Context, key audio.Key) ([]byte, bool, error) {
	var data []byte
	query := `SELECT data FROM audio_clips WHERE cache_key = ?`
	err := r.db.QueryRowContext(ctx, query, key.Digest()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Put stores a clip. An existing clip for the same key is kept.
func (r *AudioRepository) Put(ctx context.Context, key audio.Key, data []byte) error {
	query := r.db.GetDialect().InsertClipQuery()
	_, err := r.db.ExecContext(ctx, query, key.Digest(), key.Language, key.Text, data)
	return err
}

// Count returns the number of stored clips
func (r *AudioRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audio_clips`).Scan(&count)
	return count, err
}

// Stats returns the clip count and total audio size
func (r *AudioRepository) Stats(ctx context.Context) (ClipStats, error) {
	var stats ClipStats
	var total sql.NullInt64
	query := `SELECT COUNT(*), SUM(LENGTH(data)) FROM audio_clips`
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.Clips, &total); err != nil {
		return ClipStats{}, err
	}
	stats.Bytes = total.Int64
	return stats, nil
}

// Purge deletes clips created before the given time, or every clip when
// before is zero. It returns the number of clips removed.
func (r *AudioRepository) Purge(ctx context.Context, before time.Time) (int64, error) {
	var (
		result sql.Result
		err    error
	)
	if before.IsZero() {
		result, err = r.db.ExecContext(ctx, `DELETE FROM audio_clips`)
	} else {
		result, err = r.db.ExecContext(ctx, `DELETE FROM audio_clips WHERE created_at < ?`, before.UTC())
	}
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
