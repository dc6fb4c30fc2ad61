package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BackupManager handles database backup and encrypted export operations
// around the redundantly persisted profile data.
type BackupManager struct {
	dbPath string
}

// NewBackupManager creates a backup manager for the given database path.
func NewBackupManager(dbPath string) *BackupManager {
	return &BackupManager{dbPath: dbPath}
}

// Backup creates a backup of the database using VACUUM INTO, which is
// atomic and does not require an exclusive lock. Returns the backup path.
func (bm *BackupManager) Backup(db *sql.DB, backupDir string) (string, error) {
	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(bm.dbPath), "backups")
	}
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := fmt.Sprintf("rewards-cache-%s.db", time.Now().Format("20060102-150405"))
	backupPath := filepath.Join(backupDir, name)

	if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
		return "", fmt.Errorf("failed to back up database: %w", err)
	}

	return backupPath, nil
}

// ExportEncrypted writes data to destPath encrypted with the given
// passphrase, prefixed with the magic header.
func (bm *BackupManager) ExportEncrypted(data []byte, destPath, password string) error {
	encrypted, err := EncryptData(data, DefaultEncryptionConfig(password))
	if err != nil {
		return fmt.Errorf("encryption failed: %w", err)
	}

	out := make([]byte, 0, len(EncryptionMagicHeader)+len(encrypted))
	out = append(out, []byte(EncryptionMagicHeader)...)
	out = append(out, encrypted...)

	if err := os.WriteFile(destPath, out, 0o600); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

// ImportEncrypted reads a file written by ExportEncrypted and returns the
// decrypted payload.
func (bm *BackupManager) ImportEncrypted(sourcePath, password string) ([]byte, error) {
	raw, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read export file: %w", err)
	}

	header := []byte(EncryptionMagicHeader)
	if len(raw) < len(header) || string(raw[:len(header)]) != EncryptionMagicHeader {
		return nil, fmt.Errorf("not an encrypted export file")
	}

	plaintext, err := DecryptData(raw[len(header):], DefaultEncryptionConfig(password))
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}
