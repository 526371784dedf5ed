package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mescon/Dupearr/internal/crypto"
	"github.com/mescon/Dupearr/internal/logger"
)

// ErrSettingNotFound is returned when a setting key has no stored value.
var ErrSettingNotFound = errors.New("setting not found")

// Setting keys for catalog API credentials. The _api_key suffix marks them
// as sensitive, so they are encrypted at rest when a key is configured.
const (
	SettingSonarrAPIKey = "sonarr_api_key"
	SettingRadarrAPIKey = "radarr_api_key"
)

// isSensitiveKey reports whether a setting value should be encrypted at rest.
func isSensitiveKey(key string) bool {
	return strings.HasSuffix(key, "_api_key")
}

// SetSetting stores a key/value pair. Values for sensitive keys are encrypted
// when an encryption key is configured.
func (r *Repository) SetSetting(key, value string) error {
	stored := value
	if isSensitiveKey(key) && value != "" {
		encrypted, err := crypto.Encrypt(value)
		if err != nil {
			return fmt.Errorf("failed to encrypt setting %s: %w", key, err)
		}
		stored = encrypted
	}

	_, err := r.ExecWithRetry(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, stored, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}
	return nil
}

// GetSetting returns the stored value for key, decrypting sensitive values.
func (r *Repository) GetSetting(key string) (string, error) {
	var value string
	err := r.DB.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrSettingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}

	if isSensitiveKey(key) {
		decrypted, err := crypto.Decrypt(value)
		if err != nil {
			return "", fmt.Errorf("failed to decrypt setting %s: %w", key, err)
		}
		return decrypted, nil
	}
	return value, nil
}

// ResolveCatalogKey returns the effective API key for one catalog service.
// A configured value wins and is persisted for later runs; otherwise the
// stored setting is used. An absent setting resolves to "".
func (r *Repository) ResolveCatalogKey(settingKey, configured string) (string, error) {
	if configured != "" {
		if err := r.SetSetting(settingKey, configured); err != nil {
			return configured, err
		}
		return configured, nil
	}

	value, err := r.GetSetting(settingKey)
	if errors.Is(err, ErrSettingNotFound) {
		return "", nil
	}
	return value, err
}

// MigrateAPIKeyEncryption re-encrypts any plaintext API keys left over from
// before an encryption key was configured. No-op when encryption is disabled.
func (r *Repository) MigrateAPIKeyEncryption() error {
	if !crypto.EncryptionEnabled() {
		return nil
	}

	rows, err := r.QueryWithRetry(
		"SELECT key, value FROM settings WHERE key LIKE '%_api_key'")
	if err != nil {
		return fmt.Errorf("failed to query settings for encryption migration: %w", err)
	}
	defer rows.Close()

	type pending struct{ key, value string }
	var toEncrypt []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.key, &p.value); err != nil {
			return fmt.Errorf("failed to scan setting row: %w", err)
		}
		if p.value != "" && !crypto.IsEncrypted(p.value) {
			toEncrypt = append(toEncrypt, p)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range toEncrypt {
		encrypted, err := crypto.Encrypt(p.value)
		if err != nil {
			return fmt.Errorf("failed to encrypt %s: %w", p.key, err)
		}
		if _, err := r.ExecWithRetry(
			"UPDATE settings SET value = ? WHERE key = ?", encrypted, p.key); err != nil {
			return fmt.Errorf("failed to update %s: %w", p.key, err)
		}
		logger.Infof("Encrypted stored value for %s", p.key)
	}

	return nil
}
