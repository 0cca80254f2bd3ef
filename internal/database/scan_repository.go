package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/calscan/calscan/internal/models"
)

// PostgresScanRepository stores scans in the scan_runs table. Results are
// JSONB; inputs are zstd-compressed JSON.
type PostgresScanRepository struct {
	db *sql.DB
}

// NewPostgresScanRepository creates a new repository.
func NewPostgresScanRepository(db *sql.DB) *PostgresScanRepository {
	return &PostgresScanRepository{db: db}
}

// Create inserts a scan and fills in its ID and creation time.
func (r *PostgresScanRepository) Create(ctx context.Context, rec *models.ScanRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	result, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal scan result: %w", err)
	}
	input, err := compressJSON(rec.Input)
	if err != nil {
		return fmt.Errorf("failed to compress scan input: %w", err)
	}

	query := `
		INSERT INTO scan_runs (
			id, ticker, front_expiry, strike, as_of, top_score, candidates,
			result, input_zstd, narrative, narrative_model, source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`

	err = r.db.QueryRowContext(ctx, query,
		rec.ID,
		rec.Ticker,
		rec.FrontExpiry,
		rec.Strike,
		rec.AsOf,
		rec.TopScore,
		rec.Candidates,
		string(result),
		input,
		rec.Narrative,
		rec.NarrativeModel,
		rec.Source,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}

	return nil
}

// Get loads a scan with its result and input.
func (r *PostgresScanRepository) Get(ctx context.Context, id uuid.UUID) (*models.ScanRecord, error) {
	query := `
		SELECT id, ticker, front_expiry, strike, as_of, top_score, candidates,
		       result, input_zstd, narrative, narrative_model, source, created_at
		FROM scan_runs
		WHERE id = $1
	`

	var (
		rec    models.ScanRecord
		result []byte
		input  []byte
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.Ticker,
		&rec.FrontExpiry,
		&rec.Strike,
		&rec.AsOf,
		&rec.TopScore,
		&rec.Candidates,
		&result,
		&input,
		&rec.Narrative,
		&rec.NarrativeModel,
		&rec.Source,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}

	if err := json.Unmarshal(result, &rec.Result); err != nil {
		return nil, fmt.Errorf("failed to decode scan result: %w", err)
	}
	if len(input) > 0 {
		if err := decompressJSON(input, &rec.Input); err != nil {
			return nil, fmt.Errorf("failed to decode scan input: %w", err)
		}
	}

	return &rec, nil
}

// List returns scan summaries, newest first.
func (r *PostgresScanRepository) List(ctx context.Context, query models.ScanQuery) ([]models.ScanSummary, error) {
	sqlQuery := `
		SELECT id, ticker, front_expiry, strike, as_of, top_score, candidates,
		       narrative IS NOT NULL, source, created_at
		FROM scan_runs
		WHERE 1=1
	`
	args := []interface{}{}
	argPos := 1

	if query.Ticker != "" {
		sqlQuery += fmt.Sprintf(" AND ticker = $%d", argPos)
		args = append(args, query.Ticker)
		argPos++
	}

	sqlQuery += " ORDER BY created_at DESC"

	if query.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, query.Limit)
		argPos++
	}

	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, query.Offset)
	}

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	summaries := []models.ScanSummary{}
	for rows.Next() {
		var s models.ScanSummary
		if err := rows.Scan(
			&s.ID,
			&s.Ticker,
			&s.FrontExpiry,
			&s.Strike,
			&s.AsOf,
			&s.TopScore,
			&s.Candidates,
			&s.HasNarrative,
			&s.Source,
			&s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan scan row: %w", err)
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// SetNarrative stores the generated narrative for a scan.
func (r *PostgresScanRepository) SetNarrative(ctx context.Context, id uuid.UUID, narrative, model string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scan_runs SET narrative = $2, narrative_model = $3 WHERE id = $1`,
		id, narrative, model)
	if err != nil {
		return fmt.Errorf("failed to update narrative: %w", err)
	}
	return expectOne(res)
}

// Delete removes a scan.
func (r *PostgresScanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scan_runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scan: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrScanNotFound
	}
	return nil
}
