package store

import (
	"context"
	_ "crypto/sha256"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	lz4 "github.com/bkaradzic/go-lz4"
	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
	"github.com/upkedit/upkedit/errors"
)

// Codec is the compression applied to backups.
type Codec string

const (
	LZ4  Codec = "lz4"
	Zstd Codec = "zstd"
)

// ParseCodec returns the codec with the given name.
func ParseCodec(s string) (Codec, error) {
	switch c := Codec(strings.ToLower(s)); c {
	case LZ4, Zstd:
		return c, nil
	}
	return "", fmt.Errorf("unknown backup codec %q", s)
}

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

// zstdCoders returns the shared zstd coders, creating them on first use.
func zstdCoders() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		if zstdEncoder, zstdErr = zstd.NewWriter(nil); zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
	if zstdErr != nil {
		return nil, nil, fmt.Errorf("zstd: %w", zstdErr)
	}
	return zstdEncoder, zstdDecoder, nil
}

func (c Codec) compress(b []byte) ([]byte, error) {
	switch c {
	case LZ4, "":
		return lz4.Encode(nil, b)
	case Zstd:
		enc, _, err := zstdCoders()
		if err != nil {
			return nil, err
		}
		return enc.EncodeAll(b, nil), nil
	}
	return nil, fmt.Errorf("unknown backup codec %q", string(c))
}

func (c Codec) decompress(b []byte) ([]byte, error) {
	switch c {
	case LZ4, "":
		if len(b) == 0 {
			return nil, nil
		}
		// The block starts with the uncompressed length, from which Decode
		// allocates.
		d, err := lz4.Decode(nil, b)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		return d, nil
	case Zstd:
		_, dec, err := zstdCoders()
		if err != nil {
			return nil, err
		}
		return dec.DecodeAll(b, nil)
	}
	return nil, fmt.Errorf("unknown backup codec %q", string(c))
}

// BackupInfo describes a stored backup.
type BackupInfo struct {
	Digest  digest.Digest
	Export  int
	Codec   Codec
	Size    int
	Created time.Time
}

// Backup stores the current data of the export at index idx, compressed with
// the codec of the store. Returns the digest of the uncompressed data, which
// identifies the backup.
func (s *Session) Backup(idx int) (digest.Digest, error) {
	e, err := s.export(idx)
	if err != nil {
		return "", err
	}
	d := digest.FromBytes(e.Raw)
	codec := s.store.Codec
	if codec == "" {
		codec = LZ4
	}
	var data []byte
	if len(e.Raw) > 0 {
		if data, err = codec.compress(e.Raw); err != nil {
			return "", fmt.Errorf("backup %s: %w", e.ObjectInnerFullName(), err)
		}
	}
	_, err = s.tx.ExecContext(s.ctx, `
		INSERT OR IGNORE INTO backups
			(digest, export, codec, size, data, created)
		VALUES
			(?, ?, ?, ?, ?, ?)
	`, d.String(), idx, string(codec), len(e.Raw), data, time.Now().Format(time.RFC1123Z))
	if err != nil {
		return "", err
	}
	s.store.logf("[Backup] %s: %s (%s, %d -> %d bytes)", e.ObjectInnerFullName(), d, codec, len(e.Raw), len(data))
	return d, nil
}

// Backups returns the backups of the export at index idx, oldest first. A
// negative index returns the backups of every export.
func (s *Store) Backups(ctx context.Context, idx int) ([]BackupInfo, error) {
	query := `SELECT digest, export, codec, size, created FROM backups`
	var args []interface{}
	if idx >= 0 {
		query += ` WHERE export = ?`
		args = append(args, idx)
	}
	query += ` ORDER BY rowid`
	var list []BackupInfo
	rows, err := s.db.QueryContext(ctx, query, args...)
	err = scanRows(rows, err, func(rows *sql.Rows) error {
		var b BackupInfo
		var d, codec, created string
		if err := rows.Scan(&d, &b.Export, &codec, &b.Size, &created); err != nil {
			return err
		}
		b.Digest = digest.Digest(d)
		b.Codec = Codec(codec)
		var err error
		if b.Created, err = time.Parse(time.RFC1123Z, created); err != nil {
			return err
		}
		list = append(list, b)
		return nil
	})
	return list, err
}

// Restore writes a backup back to the export it was taken from.
func (s *Store) Restore(ctx context.Context, d digest.Digest) (err error) {
	s.logf("[Restore] %s", d)
	if err := d.Validate(); err != nil {
		return err
	}
	session, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer session.Rollback()

	var idx int
	var codec string
	var data []byte
	err = session.tx.QueryRowContext(ctx, `
		SELECT export, codec, data
		FROM backups
		WHERE digest = ?
	`, d.String()).Scan(&idx, &codec, &data)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%s: %w", d, ErrBackupNotFound)
	} else if err != nil {
		return err
	}

	raw, err := Codec(codec).decompress(data)
	if err != nil {
		return fmt.Errorf("backup %s: %s: %w", d, err, errors.ErrMalformed)
	}
	v := d.Verifier()
	v.Write(raw)
	if !v.Verified() {
		return fmt.Errorf("backup %s: digest mismatch: %w", d, errors.ErrMalformed)
	}
	if err := session.SetRawData(idx, raw); err != nil {
		return err
	}
	return session.Commit()
}
