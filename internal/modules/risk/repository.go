package risk

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ballastfund/ballast/internal/domain"
)

// Snapshot is one persisted risk evaluation
type Snapshot struct {
	ID         string                    `json:"id"`
	Tier       domain.RiskTier           `json:"tier"`
	Score      float64                   `json:"score"`
	TakenAt    time.Time                 `json:"taken_at"`
	Allocation domain.AllocationSnapshot `json:"allocation"`
}

// SnapshotRepository persists risk snapshots. The allocation payload is
// stored as a msgpack blob; tier/score/time are indexed columns for
// trend queries.
// Database: audit.db (risk_snapshots table)
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repo", "risk_snapshots").Logger(),
	}
}

// InitSchema creates the risk_snapshots table if it does not exist
func (r *SnapshotRepository) InitSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS risk_snapshots (
			id TEXT PRIMARY KEY,
			tier TEXT NOT NULL,
			score REAL NOT NULL,
			taken_at INTEGER NOT NULL,
			allocation BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_risk_snapshots_taken_at ON risk_snapshots(taken_at);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create risk snapshot schema: %w", err)
	}
	return nil
}

// Save persists one risk evaluation
func (r *SnapshotRepository) Save(allocation domain.AllocationSnapshot, tier domain.RiskTier, score float64) error {
	blob, err := msgpack.Marshal(allocation)
	if err != nil {
		return fmt.Errorf("failed to encode allocation snapshot: %w", err)
	}

	_, err = r.db.Exec(
		"INSERT INTO risk_snapshots (id, tier, score, taken_at, allocation) VALUES (?, ?, ?, ?, ?)",
		uuid.New().String(), string(tier), score, allocation.TakenAt.Unix(), blob,
	)
	if err != nil {
		return fmt.Errorf("failed to insert risk snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot, or nil when none exists
func (r *SnapshotRepository) Latest() (*Snapshot, error) {
	row := r.db.QueryRow(
		"SELECT id, tier, score, taken_at, allocation FROM risk_snapshots ORDER BY taken_at DESC, id DESC LIMIT 1",
	)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Recent returns up to limit snapshots, newest first
func (r *SnapshotRepository) Recent(limit int) ([]Snapshot, error) {
	rows, err := r.db.Query(
		"SELECT id, tier, score, taken_at, allocation FROM risk_snapshots ORDER BY taken_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating risk snapshots: %w", err)
	}
	return snaps, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var snap Snapshot
	var tier string
	var takenAt int64
	var blob []byte

	if err := row.Scan(&snap.ID, &tier, &snap.Score, &takenAt, &blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan risk snapshot: %w", err)
	}

	snap.Tier = domain.RiskTier(tier)
	snap.TakenAt = time.Unix(takenAt, 0).UTC()
	if err := msgpack.Unmarshal(blob, &snap.Allocation); err != nil {
		return nil, fmt.Errorf("failed to decode allocation snapshot: %w", err)
	}
	return &snap, nil
}
