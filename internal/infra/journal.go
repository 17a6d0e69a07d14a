package infra

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Ensure sqlcipher driver is registered.
	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

const journalDBName = "journal.db"

// ProjectTotal aggregates journal entries of one project.
type ProjectTotal struct {
	Project    string
	Heartbeats int
	Writes     int
	Failures   int
	LastAt     time.Time
}

// Journal implements domain.HeartbeatJournal using a SQLCipher encrypted
// SQLite database.
type Journal struct {
	db     *sql.DB
	dbPath string
}

// NewJournal opens (or creates) the encrypted journal in dataDir.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewJournal(dataDir string, key []byte) (*Journal, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, journalDBName)
	keyHex := hex.EncodeToString(key)

	// Open with SQLCipher key as DSN parameter
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// One writer; instances record from their own goroutines.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	j := &Journal{db: db, dbPath: dbPath}
	if err := j.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal tables (wrong key?): %w", err)
	}
	return j, nil
}

func (j *Journal) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS heartbeats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at INTEGER NOT NULL,
		pid INTEGER NOT NULL,
		project TEXT NOT NULL,
		entity TEXT NOT NULL,
		is_write INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS heartbeats_at ON heartbeats (at);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record appends one emission attempt.
func (j *Journal) Record(rec domain.HeartbeatRecord) error {
	isWrite := 0
	if rec.IsWrite {
		isWrite = 1
	}
	_, err := j.db.Exec(`
		INSERT INTO heartbeats (at, pid, project, entity, is_write, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.At.UnixMilli(), rec.PID, rec.Project, rec.Entity, isWrite, string(rec.Outcome), rec.ErrorMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}
	return nil
}

// Recent returns up to limit records, oldest first. limit <= 0 returns all.
func (j *Journal) Recent(limit int) ([]domain.HeartbeatRecord, error) {
	query := `SELECT at, pid, project, entity, is_write, outcome, error FROM (
		SELECT id, at, pid, project, entity, is_write, outcome, error
		FROM heartbeats ORDER BY id DESC LIMIT ?
	) ORDER BY id ASC`
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := j.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.HeartbeatRecord
	for rows.Next() {
		var (
			at      int64
			rec     domain.HeartbeatRecord
			isWrite int
			outcome string
		)
		if err := rows.Scan(&at, &rec.PID, &rec.Project, &rec.Entity, &isWrite, &outcome, &rec.ErrorMsg); err != nil {
			return nil, err
		}
		rec.At = time.UnixMilli(at)
		rec.IsWrite = isWrite != 0
		rec.Outcome = domain.HeartbeatOutcome(outcome)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Totals aggregates records at or after since, per project, busiest first.
func (j *Journal) Totals(since time.Time) ([]ProjectTotal, error) {
	rows, err := j.db.Query(`
		SELECT project,
			COUNT(*),
			SUM(is_write),
			SUM(CASE WHEN outcome != ? THEN 1 ELSE 0 END),
			MAX(at)
		FROM heartbeats
		WHERE at >= ?
		GROUP BY project
		ORDER BY COUNT(*) DESC, project ASC`,
		string(domain.OutcomeSent), since.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProjectTotal
	for rows.Next() {
		var t ProjectTotal
		var last int64
		if err := rows.Scan(&t.Project, &t.Heartbeats, &t.Writes, &t.Failures, &last); err != nil {
			return nil, err
		}
		t.LastAt = time.UnixMilli(last)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Prune deletes records older than before. Returns the number removed.
func (j *Journal) Prune(before time.Time) (int64, error) {
	result, err := j.db.Exec(`DELETE FROM heartbeats WHERE at < ?`, before.UnixMilli())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.dbPath
}

// Close releases the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// RemoveJournal deletes the journal database in dataDir. Used when the key is
// lost and the journal can no longer be opened.
func RemoveJournal(dataDir string) error {
	err := os.Remove(filepath.Join(dataDir, journalDBName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ResetJournal deletes the journal database and its key so the next run
// starts an empty journal under a fresh key.
func ResetJournal(dataDir string) error {
	if err := RemoveJournal(dataDir); err != nil {
		return fmt.Errorf("failed to remove journal: %w", err)
	}
	if err := NewFileKeyProvider(dataDir).RemoveKey(); err != nil {
		return fmt.Errorf("failed to remove journal key: %w", err)
	}
	return nil
}

// Ensure Journal implements domain.HeartbeatJournal.
var _ domain.HeartbeatJournal = (*Journal)(nil)
