package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/metrics"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// ErrRecordNotFound is returned when a history row does not exist
var ErrRecordNotFound = errors.New("download record not found")

// HistoryFilter narrows a history listing
type HistoryFilter struct {
	Kind    models.ReferenceKind
	MediaID string
	Status  string
	Limit   int
	Offset  int
}

// HistoryRepository stores finished download sessions
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new repository
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

const recordColumns = `id, kind, media_id, title, channel, start_time, end_time, quality_id,
	status, output_path, archive_key, size, error_msg, started_at, completed_at`

// Create inserts a record, assigning an id when it has none
func (r *HistoryRepository) Create(ctx context.Context, record *models.DownloadRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	query := `INSERT INTO downloads (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.Pool.Exec(ctx, query,
		record.ID, record.Kind, record.MediaID, record.Title, record.Channel,
		record.Start, record.End, record.QualityID, record.Status, record.OutputPath,
		record.ArchiveKey, record.Size, record.ErrorMsg, record.StartedAt, record.CompletedAt,
	)
	if err != nil {
		metrics.RecordDatabaseOperation("insert_download", "failed")
		return fmt.Errorf("failed to create download record: %w", err)
	}

	metrics.RecordDatabaseOperation("insert_download", "success")
	return nil
}

// Get retrieves a record by id
func (r *HistoryRepository) Get(ctx context.Context, id string) (*models.DownloadRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM downloads WHERE id = $1`

	record, err := scanRecord(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get download record: %w", err)
	}
	return record, nil
}

// List returns records matching filter, newest first
func (r *HistoryRepository) List(ctx context.Context, filter HistoryFilter) ([]*models.DownloadRecord, error) {
	query, args := buildListQuery(filter)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		metrics.RecordDatabaseOperation("list_downloads", "failed")
		return nil, fmt.Errorf("failed to list download records: %w", err)
	}
	defer rows.Close()

	var records []*models.DownloadRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan download record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate download records: %w", err)
	}

	metrics.RecordDatabaseOperation("list_downloads", "success")
	return records, nil
}

// Delete removes a record
func (r *HistoryRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM downloads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete download record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func buildListQuery(filter HistoryFilter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.Kind != "" {
		add("kind", filter.Kind)
	}
	if filter.MediaID != "" {
		add("media_id", filter.MediaID)
	}
	if filter.Status != "" {
		add("status", filter.Status)
	}

	query := `SELECT ` + recordColumns + ` FROM downloads`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, max(filter.Offset, 0))
	query += fmt.Sprintf(" ORDER BY completed_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return query, args
}

func scanRecord(row pgx.Row) (*models.DownloadRecord, error) {
	var record models.DownloadRecord
	err := row.Scan(
		&record.ID, &record.Kind, &record.MediaID, &record.Title, &record.Channel,
		&record.Start, &record.End, &record.QualityID, &record.Status, &record.OutputPath,
		&record.ArchiveKey, &record.Size, &record.ErrorMsg, &record.StartedAt, &record.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
