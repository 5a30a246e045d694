// Package store keeps a package in a SQLite database, and provides exclusive
// editing sessions and compressed backups of object data.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/errors"
	"golang.org/x/crypto/blake2b"
)

var (
	// ErrNoPackage is returned when the database does not hold a package.
	ErrNoPackage = errors.New("store holds no package")

	// ErrConflict is returned when stored object data changed after it was
	// read by a session.
	ErrConflict = errors.New("object data changed concurrently")

	// ErrBackupNotFound is returned when no backup has a requested digest.
	ErrBackupNotFound = errors.New("backup not found")
)

const schema = `
	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS names (
		idx  INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS imports (
		idx           INTEGER PRIMARY KEY,
		class_package TEXT NOT NULL,
		class         TEXT NOT NULL,
		outer_ref     INTEGER NOT NULL,
		name          TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS exports (
		idx       INTEGER PRIMARY KEY,
		class     INTEGER NOT NULL,
		super     INTEGER NOT NULL,
		outer_ref INTEGER NOT NULL,
		name      TEXT NOT NULL,
		flags     INTEGER NOT NULL,
		raw       BLOB,
		checksum  BLOB NOT NULL
	);
	CREATE TABLE IF NOT EXISTS backups (
		digest  TEXT PRIMARY KEY,
		export  INTEGER NOT NULL,
		codec   TEXT NOT NULL,
		size    INTEGER NOT NULL,
		data    BLOB,
		created TEXT NOT NULL
	);
`

// Store is a package database.
type Store struct {
	db *sql.DB

	// Codec compresses new backups.
	Codec Codec

	// Log receives diagnostic messages. Nil discards them.
	Log *log.Logger
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_txlock=exclusive&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, Codec: LZ4}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) logf(format string, v ...interface{}) {
	if s.Log != nil {
		s.Log.Printf(format, v...)
	}
}

func checksum(raw []byte) []byte {
	sum := blake2b.Sum256(raw)
	return sum[:]
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func scanRows(rows *sql.Rows, err error, fn func(*sql.Rows) error) error {
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func loadPackage(ctx context.Context, q querier) (*upkedit.Package, error) {
	var name string
	err := q.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'name'`).Scan(&name)
	if err == sql.ErrNoRows {
		return nil, ErrNoPackage
	} else if err != nil {
		return nil, err
	}

	var names []string
	nameRows, err := q.QueryContext(ctx, `SELECT name FROM names ORDER BY idx`)
	err = scanRows(nameRows, err, func(rows *sql.Rows) error {
		var n string
		if err := rows.Scan(&n); err != nil {
			return err
		}
		names = append(names, n)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var imports []*upkedit.ImportEntry
	importRows, err := q.QueryContext(ctx, `SELECT class_package, class, outer_ref, name FROM imports ORDER BY idx`)
	err = scanRows(importRows, err, func(rows *sql.Rows) error {
		e := new(upkedit.ImportEntry)
		if err := rows.Scan(&e.ClassPackage, &e.Class, &e.Outer, &e.Name); err != nil {
			return err
		}
		imports = append(imports, e)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var exports []*upkedit.ExportEntry
	exportRows, err := q.QueryContext(ctx, `SELECT class, super, outer_ref, name, flags, raw, checksum FROM exports ORDER BY idx`)
	err = scanRows(exportRows, err, func(rows *sql.Rows) error {
		e := new(upkedit.ExportEntry)
		var sum []byte
		if err := rows.Scan(&e.Class, &e.SuperClass, &e.Outer, &e.Name, &e.Flags, &e.Raw, &sum); err != nil {
			return err
		}
		if string(sum) != string(checksum(e.Raw)) {
			return fmt.Errorf("export %d (%s): checksum mismatch: %w", len(exports), e.Name, errors.ErrInvariant)
		}
		exports = append(exports, e)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return upkedit.NewPackage(name, names, imports, exports), nil
}

// Snapshot returns the current package.
func (s *Store) Snapshot(ctx context.Context) (*upkedit.Package, error) {
	s.logf("[Snapshot]")
	return loadPackage(ctx, s.db)
}

// Import replaces the package held by the store with pkg. Backups are kept.
func (s *Store) Import(ctx context.Context, pkg *upkedit.Package) (err error) {
	s.logf("[Import] %s: %d names, %d imports, %d exports", pkg.Name, len(pkg.Names), len(pkg.Imports), len(pkg.Exports))
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, table := range []string{"meta", "names", "imports", "exports"} {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return err
		}
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('name', ?)`, pkg.Name); err != nil {
		return err
	}
	for i, n := range pkg.Names {
		if _, err = tx.ExecContext(ctx, `INSERT INTO names (idx, name) VALUES (?, ?)`, i, n); err != nil {
			return err
		}
	}
	for i, e := range pkg.Imports {
		if err = insertImport(ctx, tx, i, e); err != nil {
			return err
		}
	}
	for i, e := range pkg.Exports {
		if err = insertExport(ctx, tx, i, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertImport(ctx context.Context, tx *sql.Tx, idx int, e *upkedit.ImportEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO imports
			(idx, class_package, class, outer_ref, name)
		VALUES
			(?, ?, ?, ?, ?)
	`, idx, e.ClassPackage, e.Class, e.Outer, e.Name)
	return err
}

func insertExport(ctx context.Context, tx *sql.Tx, idx int, e *upkedit.ExportEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO exports
			(idx, class, super, outer_ref, name, flags, raw, checksum)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?)
	`, idx, e.Class, e.SuperClass, e.Outer, e.Name, e.Flags, e.Raw, checksum(e.Raw))
	return err
}
