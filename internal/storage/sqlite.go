package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"trackdrive/internal/model"
	"trackdrive/internal/monitoring"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return err
	}
	version, _, err := MigrateVersion(db)
	if err != nil {
		_ = db.Close()
		return err
	}
	monitoring.WithFields(map[string]interface{}{"path": s.path, "schema": version}).Debug("sqlite store ready")

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run model.Run) error {
	if err := validateRun(run); err != nil {
		return err
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, schema_version, codec_version, track, decision, fitness, population, generations, seed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			track = excluded.track,
			decision = excluded.decision,
			fitness = excluded.fitness,
			population = excluded.population,
			generations = excluded.generations,
			seed = excluded.seed
	`, run.ID, run.SchemaVersion, run.CodecVersion, run.Track, run.Decision, run.Fitness,
		run.Population, run.Generations, run.Seed, run.CreatedAt.UnixNano())
	return err
}

const runColumns = `id, schema_version, codec_version, track, decision, fitness, population, generations, seed, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (model.Run, error) {
	var run model.Run
	var createdAt int64
	err := row.Scan(&run.ID, &run.SchemaVersion, &run.CodecVersion, &run.Track, &run.Decision, &run.Fitness,
		&run.Population, &run.Generations, &run.Seed, &createdAt)
	if err != nil {
		return model.Run{}, err
	}
	run.CreatedAt = time.Unix(0, createdAt).UTC()
	return run, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (model.Run, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Run{}, false, err
	}

	run, err := scanRun(db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Run{}, false, nil
		}
		return model.Run{}, false, err
	}
	return run, true, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]model.Run, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) SaveGenome(ctx context.Context, genome model.Genome) error {
	if err := validateGenome(genome); err != nil {
		return err
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeGenome(genome)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO genomes (id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, genome.ID, genome.SchemaVersion, genome.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetGenome(ctx context.Context, id string) (model.Genome, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Genome{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM genomes WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Genome{}, false, nil
		}
		return model.Genome{}, false, err
	}

	genome, err := DecodeGenome(payload)
	if err != nil {
		return model.Genome{}, false, fmt.Errorf("decode genome %s: %w", id, err)
	}
	return genome, true, nil
}

func (s *SQLiteStore) SaveEvaluations(ctx context.Context, evaluations []model.Evaluation) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	assignEvaluationIDs(evaluations)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO evaluations (id, schema_version, codec_version, run_id, generation, genome_id, fitness, gates_passed, frames, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range evaluations {
		if _, err := stmt.ExecContext(ctx, e.ID, e.SchemaVersion, e.CodecVersion, e.RunID, e.Generation,
			e.GenomeID, e.Fitness, e.GatesPassed, e.Frames, e.Reason); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert evaluation %s: %w", e.GenomeID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) TopEvaluations(ctx context.Context, runID string, limit int) ([]model.Evaluation, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, schema_version, codec_version, run_id, generation, genome_id, fitness, gates_passed, frames, reason
		FROM evaluations
		WHERE run_id = ?
		ORDER BY fitness DESC, generation ASC, genome_id ASC
		LIMIT ?`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var top []model.Evaluation
	for rows.Next() {
		var e model.Evaluation
		if err := rows.Scan(&e.ID, &e.SchemaVersion, &e.CodecVersion, &e.RunID, &e.Generation,
			&e.GenomeID, &e.Fitness, &e.GatesPassed, &e.Frames, &e.Reason); err != nil {
			return nil, err
		}
		top = append(top, e)
	}
	return top, rows.Err()
}

func (s *SQLiteStore) SaveGenerationSummary(ctx context.Context, summary model.GenerationSummary) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO generation_summaries (run_id, generation, best, mean, std_dev, worst, best_genome_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			best = excluded.best,
			mean = excluded.mean,
			std_dev = excluded.std_dev,
			worst = excluded.worst,
			best_genome_id = excluded.best_genome_id
	`, summary.RunID, summary.Generation, summary.Best, summary.Mean, summary.StdDev, summary.Worst, summary.BestGenomeID)
	return err
}

func (s *SQLiteStore) FitnessHistory(ctx context.Context, runID string) ([]model.GenerationSummary, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT run_id, generation, best, mean, std_dev, worst, best_genome_id
		FROM generation_summaries
		WHERE run_id = ?
		ORDER BY generation ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query generation summaries: %w", err)
	}
	defer rows.Close()

	var history []model.GenerationSummary
	for rows.Next() {
		var g model.GenerationSummary
		if err := rows.Scan(&g.RunID, &g.Generation, &g.Best, &g.Mean, &g.StdDev, &g.Worst, &g.BestGenomeID); err != nil {
			return nil, err
		}
		history = append(history, g)
	}
	return history, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}
