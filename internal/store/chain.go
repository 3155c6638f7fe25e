package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Chain is the persisted record of an overlay asset. The image itself stays
// on disk; the record gives it an ID that survives restarts and renames of
// unrelated files.
type Chain struct {
	ID        string
	Name      string
	Source    string
	Width     int
	Height    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChainRepository provides operations on chain records.
type ChainRepository struct {
	db *sql.DB
}

// Chains returns the chain repository for this store.
func (s *Store) Chains() *ChainRepository {
	return &ChainRepository{db: s.db}
}

// ChainID returns the stable ID for the chain file at source, creating the
// record on first sight. Name and size are refreshed on every call. Files
// that share a base name, such as gold.png and gold.jpg, are distinct chains.
func (r *ChainRepository) ChainID(name, source string, width, height int) (string, error) {
	existing, err := r.GetBySource(source)
	switch {
	case err == nil:
		_, err = r.db.Exec(
			`UPDATE chains SET name = ?, width = ?, height = ?, updated_at = ? WHERE id = ?`,
			name, width, height, time.Now(), existing.ID,
		)
		if err != nil {
			return "", err
		}
		return existing.ID, nil
	case errors.Is(err, ErrNotFound):
		c := &Chain{
			ID:     uuid.New().String(),
			Name:   name,
			Source: source,
			Width:  width,
			Height: height,
		}
		if err := r.Create(c); err != nil {
			return "", err
		}
		return c.ID, nil
	default:
		return "", err
	}
}

// Create inserts a new chain record.
func (r *ChainRepository) Create(c *Chain) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO chains (id, name, source, width, height, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Source, c.Width, c.Height, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

// GetByID retrieves a chain by its ID.
func (r *ChainRepository) GetByID(id string) (*Chain, error) {
	return r.scanOne(
		`SELECT id, name, source, width, height, created_at, updated_at
		 FROM chains WHERE id = ?`,
		id,
	)
}

// GetByName retrieves the first chain with the given name, ordered by
// source. Names are not unique.
func (r *ChainRepository) GetByName(name string) (*Chain, error) {
	return r.scanOne(
		`SELECT id, name, source, width, height, created_at, updated_at
		 FROM chains WHERE name = ? ORDER BY source LIMIT 1`,
		name,
	)
}

// GetBySource retrieves a chain by its image path.
func (r *ChainRepository) GetBySource(source string) (*Chain, error) {
	return r.scanOne(
		`SELECT id, name, source, width, height, created_at, updated_at
		 FROM chains WHERE source = ?`,
		source,
	)
}

func (r *ChainRepository) scanOne(query string, arg any) (*Chain, error) {
	c := &Chain{}
	err := r.db.QueryRow(query, arg).
		Scan(&c.ID, &c.Name, &c.Source, &c.Width, &c.Height, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// List retrieves all chain records ordered by name, then source.
func (r *ChainRepository) List() ([]*Chain, error) {
	rows, err := r.db.Query(
		`SELECT id, name, source, width, height, created_at, updated_at
		 FROM chains ORDER BY name, source`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chains []*Chain
	for rows.Next() {
		c := &Chain{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Source, &c.Width, &c.Height, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		chains = append(chains, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return chains, nil
}

// Delete removes a chain record by its ID.
func (r *ChainRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM chains WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
