package series

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/verdantlab/phenosample/phenomodel"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store keeps extracted observations in a local sqlite database.
type Store struct {
	db *sql.DB
}

func OpenStore(path string) (*Store, error) {
	if err := runMigrations(path); err != nil {
		return nil, fmt.Errorf("migrating series db: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening series db: %w", err)
	}

	// sqlite allows one writer; a second pooled connection fails with
	// SQLITE_BUSY instead of queueing, so keep the pool at one
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring series db: %w", err)
	}

	return &Store{db: db}, nil
}

func runMigrations(path string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// PutSeries upserts every observation of the series in one transaction.
func (s *Store) PutSeries(ctx context.Context, ser phenomodel.Series) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (point_id, veg_index, obs_date, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (point_id, veg_index, obs_date) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range ser.Obs {
		_, err := stmt.ExecContext(ctx, ser.PointID, string(ser.Index), o.Date.Format(dateLayout), o.Value)
		if err != nil {
			return fmt.Errorf("upserting observation for plot %d: %w", ser.PointID, err)
		}
	}

	return tx.Commit()
}

// GetSeries returns the stored observations of one plot and index inside
// [from, to], ordered by date.
func (s *Store) GetSeries(ctx context.Context, pointID int, index phenomodel.VegIndex, from, to time.Time) (phenomodel.Series, error) {
	ser := phenomodel.Series{PointID: pointID, Index: index}

	rows, err := s.db.QueryContext(ctx, `
		SELECT obs_date, value FROM observations
		WHERE point_id = ? AND veg_index = ? AND obs_date >= ? AND obs_date <= ?
		ORDER BY obs_date`,
		pointID, string(index), from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return ser, err
	}
	defer rows.Close()

	for rows.Next() {
		var dateStr string
		var value float64
		if err := rows.Scan(&dateStr, &value); err != nil {
			return ser, err
		}
		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return ser, fmt.Errorf("stored date %q is invalid: %w", dateStr, err)
		}
		ser.Obs = append(ser.Obs, phenomodel.Observation{Date: date, Value: value})
	}
	return ser, rows.Err()
}

// PointIDs lists every plot with at least one stored observation.
func (s *Store) PointIDs(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT point_id FROM observations ORDER BY point_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
