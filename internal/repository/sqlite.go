package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mr1hm/go-schoolzone-scan/internal/models"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx doesn't know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

type SQLiteDB struct {
	db *sqlx.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS predictions (
			run_id TEXT NOT NULL,
			school_id TEXT NOT NULL,
			road_name TEXT,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			bearing REAL NOT NULL,
			image_path TEXT NOT NULL,
			label TEXT NOT NULL,
			score REAL NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (run_id, image_path)
		);

		CREATE INDEX IF NOT EXISTS idx_predictions_run ON predictions(run_id);
		CREATE INDEX IF NOT EXISTS idx_predictions_school ON predictions(school_id);
		CREATE INDEX IF NOT EXISTS idx_predictions_label ON predictions(label);
  	`

	_, err := s.db.Exec(schema)
	return err
}

// ReplaceRun atomically swaps the stored predictions for a run.
func (s *SQLiteDB) ReplaceRun(ctx context.Context, runID string, rows []models.StoredPrediction) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM predictions WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("error clearing run %s: %w", runID, err)
	}

	const insert = `
		INSERT INTO predictions
			(run_id, school_id, road_name, latitude, longitude, bearing, image_path, label, score, created_at)
		VALUES
			(:run_id, :school_id, :road_name, :latitude, :longitude, :bearing, :image_path, :label, :score, :created_at)
	`
	for _, row := range rows {
		if _, err := tx.NamedExecContext(ctx, insert, row); err != nil {
			return fmt.Errorf("error inserting prediction %s: %w", row.ImagePath, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteDB) List(ctx context.Context, opts Filter) ([]models.StoredPrediction, error) {
	query := `SELECT run_id, school_id, road_name, latitude, longitude, bearing, image_path, label, score, created_at FROM predictions`

	var (
		clauses []string
		args    []any
	)

	if opts.RunID != "" {
		clauses = append(clauses, "run_id = ?")
		args = append(args, opts.RunID)
	}
	if opts.SchoolID != "" {
		clauses = append(clauses, "school_id = ?")
		args = append(args, opts.SchoolID)
	}
	if opts.Label != nil {
		clauses = append(clauses, "label = ?")
		args = append(args, string(*opts.Label))
	}
	if opts.MinScore != nil {
		clauses = append(clauses, "score >= ?")
		args = append(args, *opts.MinScore)
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY run_id, school_id, road_name, rowid"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	var rows []models.StoredPrediction
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error listing predictions: %w", err)
	}
	return rows, nil
}

func (s *SQLiteDB) Runs(ctx context.Context) ([]string, error) {
	var runs []string
	if err := s.db.SelectContext(ctx, &runs, `SELECT DISTINCT run_id FROM predictions ORDER BY run_id`); err != nil {
		return nil, fmt.Errorf("error listing runs: %w", err)
	}
	return runs, nil
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
