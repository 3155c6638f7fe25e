package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/ayusman/chainfit/internal/placement"
)

// Setting keys.
const (
	KeyScale          = "placement.scale"
	KeyVerticalOffset = "placement.vertical_offset"
	KeyActiveChain    = "catalog.active_chain"
)

// SettingsRepository provides key-value access to application settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value stored under key.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Parameters loads the persisted placement parameters. Missing keys fall
// back to the defaults, and the result is clamped to the nominal ranges.
func (r *SettingsRepository) Parameters() (placement.Parameters, error) {
	p := placement.DefaultParameters()

	scale, err := r.float(KeyScale)
	if err != nil {
		return p, err
	}
	if scale != nil {
		p.Scale = *scale
	}

	offset, err := r.float(KeyVerticalOffset)
	if err != nil {
		return p, err
	}
	if offset != nil {
		p.VerticalOffset = *offset
	}

	return p.Clamp(), nil
}

// SaveParameters persists placement parameters in one transaction.
func (r *SettingsRepository) SaveParameters(p placement.Parameters) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const upsert = `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	if _, err := tx.Exec(upsert, KeyScale, strconv.FormatFloat(p.Scale, 'g', -1, 64)); err != nil {
		return err
	}
	if _, err := tx.Exec(upsert, KeyVerticalOffset, strconv.FormatFloat(p.VerticalOffset, 'g', -1, 64)); err != nil {
		return err
	}

	return tx.Commit()
}

// ActiveChain returns the ID of the last selected chain.
func (r *SettingsRepository) ActiveChain() (string, error) {
	return r.Get(KeyActiveChain)
}

// SetActiveChain persists the ID of the selected chain.
func (r *SettingsRepository) SetActiveChain(id string) error {
	return r.Set(KeyActiveChain, id)
}

func (r *SettingsRepository) float(key string) (*float64, error) {
	raw, err := r.Get(key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("setting %s: %w", key, err)
	}
	return &v, nil
}
