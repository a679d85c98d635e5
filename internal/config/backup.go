package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// MaxBackups bounds how many timestamped backups of a config file are
	// retained; older ones are removed best-effort.
	MaxBackups = 3

	// BackupSuffix is appended (with a timestamp) to backed-up config files.
	BackupSuffix = ".bak"
)

// backupFile copies path to a timestamped sibling (<path>.bak.<stamp>) and
// trims old backups down to MaxBackups. Returns the backup path.
func backupFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read config for backup: %w", err)
	}

	stamp := time.Now().Format("20060102-150405")
	backupPath := fmt.Sprintf("%s%s.%s", path, BackupSuffix, stamp)
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write config backup: %w", err)
	}

	// Trimming is best-effort; the backup itself already succeeded.
	if backups, err := listBackups(path); err == nil && len(backups) > MaxBackups {
		for _, old := range backups[MaxBackups:] {
			_ = os.Remove(old)
		}
	}

	return backupPath, nil
}

// listBackups returns every timestamped backup of path, newest first.
func listBackups(path string) ([]string, error) {
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list config directory: %w", err)
	}

	prefix := filepath.Base(path) + BackupSuffix + "."
	var backups []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Slice(backups, func(i, j int) bool {
		a, _ := os.Stat(backups[i])
		b, _ := os.Stat(backups[j])
		if a == nil || b == nil {
			return false
		}
		return a.ModTime().After(b.ModTime())
	})

	return backups, nil
}

// BackupUserConfig snapshots the user config file before a rewrite. Returns
// the backup path, or "" with no error when there is nothing to back up.
func BackupUserConfig() (string, error) {
	if !UserConfigExists() {
		return "", nil
	}
	return backupFile(GetUserConfigPath())
}

// ListUserConfigBackups returns the user config's backups, newest first.
func ListUserConfigBackups() ([]string, error) {
	return listBackups(GetUserConfigPath())
}

// RestoreUserConfig replaces the user config with the given backup. The
// current config, if present, is itself backed up first.
func RestoreUserConfig(backupPath string) error {
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup file not found: %w", err)
	}

	if UserConfigExists() {
		if _, err := BackupUserConfig(); err != nil {
			return fmt.Errorf("backup current config before restore: %w", err)
		}
	}

	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	if err := os.MkdirAll(GetUserConfigDir(), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(GetUserConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("write restored config: %w", err)
	}
	return nil
}
