package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// PredictionRecord is a persisted summary of a served prediction. The full
// result is not stored; history exists for operators to review what the
// service returned, not as a response cache.
type PredictionRecord struct {
	ID                int64
	Specs             string
	Product           string
	PredictedPriceINR float64
	Source            string
	CreatedAt         time.Time
}

// Store defines the interface for prediction history persistence.
type Store interface {
	SavePrediction(record *PredictionRecord) error
	RecentPredictions(limit int) ([]PredictionRecord, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the history database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL mode and a busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		specs TEXT NOT NULL,
		product TEXT NOT NULL,
		predicted_price_inr REAL NOT NULL,
		source TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create predictions table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SavePrediction(record *PredictionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO predictions (specs, product, predicted_price_inr, source, created_at) VALUES (?, ?, ?, ?, ?)`,
		record.Specs, record.Product, record.PredictedPriceINR, record.Source, record.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		record.ID = id
	}
	return nil
}

// RecentPredictions returns up to limit records, newest first.
func (s *SQLiteStore) RecentPredictions(limit int) ([]PredictionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, specs, product, predicted_price_inr, source, created_at FROM predictions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var records []PredictionRecord
	for rows.Next() {
		var r PredictionRecord
		if err := rows.Scan(&r.ID, &r.Specs, &r.Product, &r.PredictedPriceINR, &r.Source, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
