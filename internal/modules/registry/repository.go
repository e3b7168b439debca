package registry

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ballastfund/ballast/internal/domain"
)

// Repository handles implementation registry database operations.
// Database: registry.db (implementations, implementation_assets tables)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new registry repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "registry").Logger(),
	}
}

// InitSchema creates the registry tables if they do not exist
func (r *Repository) InitSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS implementations (
			id TEXT PRIMARY KEY,
			active INTEGER NOT NULL DEFAULT 1,
			liquid INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS implementation_assets (
			implementation_id TEXT NOT NULL REFERENCES implementations(id),
			asset TEXT NOT NULL,
			PRIMARY KEY (implementation_id, asset)
		);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create registry schema: %w", err)
	}
	return nil
}

// Upsert inserts or updates an implementation and its supported assets
func (r *Repository) Upsert(impl Implementation) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	_, err = tx.Exec(`
		INSERT INTO implementations (id, active, liquid, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET active = excluded.active, liquid = excluded.liquid, updated_at = excluded.updated_at
	`, string(impl.ID), boolToInt(impl.Active), boolToInt(impl.Liquid), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert implementation %s: %w", impl.ID, err)
	}

	if _, err := tx.Exec("DELETE FROM implementation_assets WHERE implementation_id = ?", string(impl.ID)); err != nil {
		return fmt.Errorf("failed to clear implementation assets: %w", err)
	}
	for _, asset := range impl.Assets {
		if _, err := tx.Exec(
			"INSERT INTO implementation_assets (implementation_id, asset) VALUES (?, ?)",
			string(impl.ID), string(asset),
		); err != nil {
			return fmt.Errorf("failed to insert implementation asset: %w", err)
		}
	}

	return tx.Commit()
}

// Get returns one implementation with its supported assets
func (r *Repository) Get(id domain.ImplementationID) (*Implementation, error) {
	var impl Implementation
	var active, liquid int
	var createdAt, updatedAt int64

	err := r.db.QueryRow(
		"SELECT id, active, liquid, created_at, updated_at FROM implementations WHERE id = ?",
		string(id),
	).Scan(&impl.ID, &active, &liquid, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query implementation %s: %w", id, err)
	}

	impl.Active = active != 0
	impl.Liquid = liquid != 0
	impl.CreatedAt = time.Unix(createdAt, 0).UTC()
	impl.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	rows, err := r.db.Query(
		"SELECT asset FROM implementation_assets WHERE implementation_id = ? ORDER BY asset",
		string(id),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query implementation assets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var asset string
		if err := rows.Scan(&asset); err != nil {
			return nil, fmt.Errorf("failed to scan implementation asset: %w", err)
		}
		impl.Assets = append(impl.Assets, domain.Asset(asset))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating implementation assets: %w", err)
	}

	return &impl, nil
}

// GetAll returns every registered implementation
func (r *Repository) GetAll() ([]Implementation, error) {
	rows, err := r.db.Query("SELECT id FROM implementations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query implementations: %w", err)
	}
	defer rows.Close()

	var ids []domain.ImplementationID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan implementation id: %w", err)
		}
		ids = append(ids, domain.ImplementationID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating implementations: %w", err)
	}

	impls := make([]Implementation, 0, len(ids))
	for _, id := range ids {
		impl, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		if impl != nil {
			impls = append(impls, *impl)
		}
	}
	return impls, nil
}

// SetActive flips the active flag of an implementation
func (r *Repository) SetActive(id domain.ImplementationID, active bool) error {
	res, err := r.db.Exec(
		"UPDATE implementations SET active = ?, updated_at = ? WHERE id = ?",
		boolToInt(active), time.Now().Unix(), string(id),
	)
	if err != nil {
		return fmt.Errorf("failed to update implementation %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("implementation %s not found", id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
