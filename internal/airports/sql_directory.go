package airports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS airports (
	icao      TEXT PRIMARY KEY,
	iata      TEXT,
	name      TEXT NOT NULL,
	city      TEXT,
	country   TEXT,
	elevation INTEGER DEFAULT 0,
	latitude  REAL NOT NULL,
	longitude REAL NOT NULL,
	timezone  TEXT
);
CREATE INDEX IF NOT EXISTS idx_airports_iata ON airports(iata);
`

// SQLDirectory serves airport lookups from the bundled sqlite database.
type SQLDirectory struct {
	db *sqlx.DB
}

// NewSQLDirectory creates a directory over an opened sqlite handle.
func NewSQLDirectory(db *sqlx.DB) *SQLDirectory {
	return &SQLDirectory{db: db}
}

// EnsureSchema creates the airports table when missing.
func (d *SQLDirectory) EnsureSchema(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create airports schema: %w", err)
	}
	return nil
}

// Lookup resolves a code, trying ICAO first, then IATA, then the US
// K-prefix variants so DTW finds KDTW and KDTW falls back to the DTW
// IATA row. Returns (nil, nil) when nothing matches.
func (d *SQLDirectory) Lookup(ctx context.Context, code string) (*Airport, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return nil, nil
	}

	icaoCandidates := []string{c}
	if len(c) == 3 {
		icaoCandidates = append(icaoCandidates, "K"+c)
	}
	for _, cand := range icaoCandidates {
		ap, err := d.findBy(ctx, "icao", cand)
		if err != nil {
			return nil, err
		}
		if ap != nil {
			return ap, nil
		}
	}

	iataCandidates := []string{c}
	if len(c) == 4 && c[0] == 'K' {
		iataCandidates = append(iataCandidates, c[1:])
	}
	for _, cand := range iataCandidates {
		ap, err := d.findBy(ctx, "iata", cand)
		if err != nil {
			return nil, err
		}
		if ap != nil {
			return ap, nil
		}
	}
	return nil, nil
}

func (d *SQLDirectory) findBy(ctx context.Context, column, value string) (*Airport, error) {
	var ap Airport
	query := fmt.Sprintf("SELECT icao, iata, name, city, country, elevation, latitude, longitude, timezone FROM airports WHERE %s = ?", column)
	err := d.db.GetContext(ctx, &ap, query, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("airport lookup by %s: %w", column, err)
	}
	return &ap, nil
}

// ReplaceAll swaps the full airport set in one transaction, used by the
// importer.
func (d *SQLDirectory) ReplaceAll(ctx context.Context, records []Airport) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM airports"); err != nil {
		return fmt.Errorf("clear airports: %w", err)
	}

	const insert = `INSERT INTO airports
		(icao, iata, name, city, country, elevation, latitude, longitude, timezone)
		VALUES (:icao, :iata, :name, :city, :country, :elevation, :latitude, :longitude, :timezone)`
	for i := range records {
		if _, err := tx.NamedExecContext(ctx, insert, &records[i]); err != nil {
			return fmt.Errorf("insert airport %s: %w", records[i].ICAO, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of airports in the directory.
func (d *SQLDirectory) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := d.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM airports"); err != nil {
		return 0, fmt.Errorf("count airports: %w", err)
	}
	return n, nil
}
