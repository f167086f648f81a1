// Package catalog provides an optional SQLite-backed run ledger for the
// analyzer (spec §4.D supplement): a record of which capture files have
// already been analyzed, so repeat batch analysis of a large capture
// directory can skip files whose content has not changed.
package catalog

import (
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Catalog records one row per analyzed input file.
type Catalog struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS analyzed_files (
		input_path          TEXT PRIMARY KEY,
		sha256_first_packet TEXT NOT NULL DEFAULT '',
		total_packets       INTEGER NOT NULL DEFAULT 0,
		last_analyzed_at    INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Catalog{db: db}, nil
}

// Record is one analyzed_files row.
type Record struct {
	InputPath         string
	SHA256FirstPacket string
	TotalPackets      int
	LastAnalyzedAt    time.Time
}

// Upsert writes or replaces the record for r.InputPath.
func (c *Catalog) Upsert(r Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(`INSERT INTO analyzed_files (input_path, sha256_first_packet, total_packets, last_analyzed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(input_path) DO UPDATE SET
			sha256_first_packet=excluded.sha256_first_packet,
			total_packets=excluded.total_packets,
			last_analyzed_at=excluded.last_analyzed_at`,
		r.InputPath, r.SHA256FirstPacket, r.TotalPackets, r.LastAnalyzedAt.Unix())
	return err
}

// Lookup returns the record for inputPath, and whether it exists.
func (c *Catalog) Lookup(inputPath string) (Record, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var r Record
	var lastAnalyzedAt int64
	err := c.db.QueryRow(`SELECT input_path, sha256_first_packet, total_packets, last_analyzed_at
		FROM analyzed_files WHERE input_path = ?`, inputPath).
		Scan(&r.InputPath, &r.SHA256FirstPacket, &r.TotalPackets, &lastAnalyzedAt)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	r.LastAnalyzedAt = time.Unix(lastAnalyzedAt, 0).UTC()
	return r, true, nil
}

// ShouldSkip reports whether inputPath has already been analyzed with the
// same first-packet digest, meaning a repeat run can skip it.
func (c *Catalog) ShouldSkip(inputPath, sha256FirstPacket string) (bool, error) {
	r, found, err := c.Lookup(inputPath)
	if err != nil || !found {
		return false, err
	}
	return r.SHA256FirstPacket == sha256FirstPacket, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}
