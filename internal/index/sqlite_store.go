package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cybervault/cybervault/internal/events"
	"github.com/cybervault/cybervault/internal/models"
)

// SQLiteStore implements SQLite-based index storage.
type SQLiteStore struct {
	db     *sql.DB
	logger *events.Logger
}

// NewSQLiteStore creates a SQLite index store.
func NewSQLiteStore(dbPath string, logger *events.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		logger: logger.WithField("component", "sqlite_index_store"),
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	return store, nil
}

// initialize creates tables and indexes.
func (s *SQLiteStore) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS vault_indexes (
        owner TEXT PRIMARY KEY,
        updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS vault_records (
        owner TEXT NOT NULL,
        id TEXT NOT NULL,
        name TEXT NOT NULL,
        size INTEGER NOT NULL DEFAULT 0,
        type TEXT,
        uploaded_at TIMESTAMP,
        payload_ref TEXT NOT NULL,
        salt BLOB NOT NULL,
        iv BLOB NOT NULL,
        checksum TEXT NOT NULL,
        tags TEXT,
        position INTEGER NOT NULL,
        PRIMARY KEY (owner, id),
        FOREIGN KEY (owner) REFERENCES vault_indexes(owner) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_vault_records_owner ON vault_records(owner, position);

    CREATE TABLE IF NOT EXISTS schema_info (
        version INTEGER PRIMARY KEY
    );

    INSERT OR IGNORE INTO schema_info (version) VALUES (?);
    `

	if _, err := s.db.Exec(schema, CurrentSchemaVersion); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	return nil
}

// Load retrieves the index for an owner.
func (s *SQLiteStore) Load(owner string) (*models.VaultIndex, error) {
	s.logger.WithField("owner", owner).Debug("Loading index from SQLite")

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	idx := models.NewVaultIndex(owner)

	var updatedAt sql.NullTime
	err = tx.QueryRow(`
        SELECT updated_at FROM vault_indexes WHERE owner = ?
    `, owner).Scan(&updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIndexNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	if updatedAt.Valid {
		idx.UpdatedAt = updatedAt.Time
	}

	rows, err := tx.Query(`
        SELECT id, name, size, type, uploaded_at, payload_ref, salt, iv, checksum, tags
        FROM vault_records
        WHERE owner = ?
        ORDER BY position
    `, owner)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		idx.Records = append(idx.Records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return idx, nil
}

// Save persists the whole index for an owner.
func (s *SQLiteStore) Save(owner string, idx *models.VaultIndex) error {
	s.logger.WithFields(map[string]interface{}{
		"owner":   owner,
		"records": idx.Count(),
	}).Debug("Saving index to SQLite")

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
        INSERT INTO vault_indexes (owner, updated_at) VALUES (?, ?)
        ON CONFLICT(owner) DO UPDATE SET updated_at = excluded.updated_at
    `, owner, time.Now()); err != nil {
		return fmt.Errorf("upsert index row: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM vault_records WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	for i, record := range idx.Records {
		if err := insertRecord(tx, owner, record, i); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Upsert inserts or replaces one record and persists immediately.
func (s *SQLiteStore) Upsert(owner string, record *models.FileRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
        INSERT INTO vault_indexes (owner, updated_at) VALUES (?, ?)
        ON CONFLICT(owner) DO UPDATE SET updated_at = excluded.updated_at
    `, owner, time.Now()); err != nil {
		return fmt.Errorf("upsert index row: %w", err)
	}

	// Keep position for replaced records, append for new ones.
	var position int
	err = tx.QueryRow(`SELECT position FROM vault_records WHERE owner = ? AND id = ?`,
		owner, record.ID).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		if err := tx.QueryRow(`SELECT COALESCE(MAX(position)+1, 0) FROM vault_records WHERE owner = ?`,
			owner).Scan(&position); err != nil {
			return fmt.Errorf("next position: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("query position: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM vault_records WHERE owner = ? AND id = ?`, owner, record.ID); err != nil {
		return fmt.Errorf("replace record: %w", err)
	}

	if err := insertRecord(tx, owner, record, position); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Remove deletes one record and persists immediately.
func (s *SQLiteStore) Remove(owner string, id string) error {
	result, err := s.db.Exec(`DELETE FROM vault_records WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return models.ErrRecordNotFound
	}

	return nil
}

// List returns records matching the filter, in index order.
func (s *SQLiteStore) List(owner string, filter func(*models.FileRecord) bool) ([]*models.FileRecord, error) {
	idx, err := s.Load(owner)
	if err != nil {
		if errors.Is(err, ErrIndexNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return idx.Filter(filter), nil
}

// Reset removes all state for an owner.
func (s *SQLiteStore) Reset(owner string) error {
	s.logger.WithField("owner", owner).Info("Resetting index")

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM vault_records WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM vault_indexes WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("delete index: %w", err)
	}

	return tx.Commit()
}

// Close releases database resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Helpers

func insertRecord(tx *sql.Tx, owner string, record *models.FileRecord, position int) error {
	tags, err := json.Marshal(record.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	// Inline payloads only exist inside backup containers; records at rest
	// always reference the blob store.
	if record.Payload.Ref == "" {
		return fmt.Errorf("record %s has no payload ref", record.ID)
	}

	if _, err := tx.Exec(`
        INSERT INTO vault_records
            (owner, id, name, size, type, uploaded_at, payload_ref, salt, iv, checksum, tags, position)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, owner, record.ID, record.Name, record.Size, record.Type, record.UploadedAt,
		record.Payload.Ref, record.Salt, record.IV, record.Checksum, string(tags), position); err != nil {
		return fmt.Errorf("insert record %s: %w", record.ID, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*models.FileRecord, error) {
	var record models.FileRecord
	var uploadedAt sql.NullTime
	var typ sql.NullString
	var tagsJSON sql.NullString

	if err := row.Scan(&record.ID, &record.Name, &record.Size, &typ, &uploadedAt,
		&record.Payload.Ref, &record.Salt, &record.IV, &record.Checksum, &tagsJSON); err != nil {
		return nil, fmt.Errorf("scan record row: %w", err)
	}

	if typ.Valid {
		record.Type = typ.String
	}
	if uploadedAt.Valid {
		record.UploadedAt = uploadedAt.Time
	}
	if tagsJSON.Valid && tagsJSON.String != "" && tagsJSON.String != "null" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &record.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}

	return &record, nil
}
