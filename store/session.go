package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/errors"
)

// Session is an exclusive write transaction on a store. The package of a
// session reflects the changes made through it.
type Session struct {
	store *Store
	ctx   context.Context
	tx    *sql.Tx
	pkg   *upkedit.Package
	done  bool
}

// Begin starts an exclusive session. Other sessions wait until it is committed
// or rolled back.
func (s *Store) Begin(ctx context.Context) (*Session, error) {
	s.logf("[Begin]")
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	pkg, err := loadPackage(ctx, tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	return &Session{store: s, ctx: ctx, tx: tx, pkg: pkg}, nil
}

// Package returns the package as seen by the session.
func (s *Session) Package() *upkedit.Package {
	return s.pkg
}

func (s *Session) export(idx int) (*upkedit.ExportEntry, error) {
	if idx < 0 || idx >= len(s.pkg.Exports) {
		return nil, fmt.Errorf("export index %d out of range [0, %d): %w", idx, len(s.pkg.Exports), errors.ErrInvariant)
	}
	return s.pkg.Exports[idx], nil
}

// relink rebuilds the package after a table grew.
func (s *Session) relink() {
	s.pkg = upkedit.NewPackage(s.pkg.Name, s.pkg.Names, s.pkg.Imports, s.pkg.Exports)
}

// SetRawData replaces the data of the export at index idx. The write fails
// with ErrConflict if the stored data no longer matches what the session read.
func (s *Session) SetRawData(idx int, data []byte) error {
	e, err := s.export(idx)
	if err != nil {
		return err
	}
	s.store.logf("[SetRawData] %s: %d -> %d bytes", e.ObjectInnerFullName(), len(e.Raw), len(data))
	res, err := s.tx.ExecContext(s.ctx, `
		UPDATE exports
		SET raw = ?, checksum = ?
		WHERE idx = ? AND checksum = ?
	`, data, checksum(data), idx, checksum(e.Raw))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("export %s: %w", e.ObjectInnerFullName(), ErrConflict)
	}
	e.Raw = append([]byte(nil), data...)
	return nil
}

// AddName returns the index of name in the name table, adding it if it is not
// present.
func (s *Session) AddName(name string) (int32, error) {
	if i := s.pkg.NameIndex(name); i >= 0 {
		return i, nil
	}
	i := len(s.pkg.Names)
	if _, err := s.tx.ExecContext(s.ctx, `INSERT INTO names (idx, name) VALUES (?, ?)`, i, name); err != nil {
		return -1, err
	}
	s.store.logf("[AddName] %s", name)
	s.pkg.Names = append(s.pkg.Names, name)
	return int32(i), nil
}

// AddNames adds each name that is not present.
func (s *Session) AddNames(names ...string) error {
	for _, name := range names {
		if _, err := s.AddName(name); err != nil {
			return err
		}
	}
	return nil
}

func splitFullName(name string) (outer, inner string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// AddImport returns the reference to the import with the given full name and
// full class name, adding it if it is not present. Missing outer packages are
// imported with the class Core.Package.
func (s *Session) AddImport(fullName, fullClass string) (int32, error) {
	for _, e := range s.pkg.Imports {
		if strings.EqualFold(e.ObjectFullName(), fullName) && strings.EqualFold(e.FullClassName(), fullClass) {
			return e.Reference(), nil
		}
	}
	classPackage, class := splitFullName(fullClass)
	if classPackage == "" || class == "" {
		return 0, fmt.Errorf("class %q is not qualified by a package: %w", fullClass, errors.ErrInvariant)
	}
	outerName, name := splitFullName(fullName)
	var outer int32
	if outerName != "" {
		var err error
		if outer, err = s.AddImport(outerName, "Core.Package"); err != nil {
			return 0, err
		}
	}
	if err := s.AddNames(classPackage, class, name); err != nil {
		return 0, err
	}

	e := &upkedit.ImportEntry{ClassPackage: classPackage, Class: class, Outer: outer, Name: name}
	if err := insertImport(s.ctx, s.tx, len(s.pkg.Imports), e); err != nil {
		return 0, err
	}
	s.store.logf("[AddImport] %s (%s)", fullName, fullClass)
	s.pkg.Imports = append(s.pkg.Imports, e)
	s.relink()
	return e.Reference(), nil
}

// AddExport appends an export, adding its name to the name table. Returns the
// reference to the new export.
func (s *Session) AddExport(e *upkedit.ExportEntry) (int32, error) {
	if _, err := s.AddName(e.Name); err != nil {
		return 0, err
	}
	if err := insertExport(s.ctx, s.tx, len(s.pkg.Exports), e); err != nil {
		return 0, err
	}
	s.store.logf("[AddExport] %s", e.Name)
	s.pkg.Exports = append(s.pkg.Exports, e)
	s.relink()
	return e.Reference(), nil
}

// Commit applies the changes of the session.
func (s *Session) Commit() error {
	if s.done {
		return sql.ErrTxDone
	}
	s.done = true
	s.store.logf("[Commit]")
	return s.tx.Commit()
}

// Rollback discards the changes of the session. It does nothing after
// Commit, so it may be deferred.
func (s *Session) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	s.store.logf("[Rollback]")
	return s.tx.Rollback()
}
