package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/ledgewood/folio/errors"
	"github.com/ledgewood/folio/logger"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // No file to backup
	}

	// Rotate backups: .back3 -> delete, .back2 -> .back3, .back1 -> .back2, current -> .back1
	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		logger.Warnw("Failed to delete old config backup", "path", back3, "error", err)
	}

	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// GetUserConfigPath returns the path to the user config file in ~/.folio/folio.toml
func GetUserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".folio", "folio.toml")
}

// loadOrInitializeConfigFile loads a TOML config file as a raw map, or returns
// an empty map if the file does not exist yet.
func loadOrInitializeConfigFile(configPath string) (map[string]interface{}, error) {
	if configPath == "" {
		return nil, errors.New("could not determine config path")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return nil, errors.Wrap(err, "failed to create config directory")
	}

	var config map[string]interface{}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	} else {
		config = make(map[string]interface{})
	}

	return config, nil
}

// saveConfigFile writes the config map to a TOML file with rotating backups
func saveConfigFile(config map[string]interface{}, configPath string) error {
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	// Mark this as our own write to prevent reload loops
	globalWatcherMu.Lock()
	if globalWatcher != nil {
		globalWatcher.MarkOwnWrite()
	}
	globalWatcherMu.Unlock()

	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

// SetValue persists a dotted-path key (e.g. "openrouter.model") to the user
// config file, creating intermediate sections as needed.
func SetValue(key string, value interface{}) error {
	return SetValueIn(GetUserConfigPath(), key, value)
}

// SetValueIn persists a dotted-path key to a specific config file
func SetValueIn(configPath, key string, value interface{}) error {
	if key == "" {
		return errors.New("config key cannot be empty")
	}

	config, err := loadOrInitializeConfigFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to load config file")
	}

	// Walk the dotted path, creating sections as needed
	parts := strings.Split(key, ".")
	section := config
	for _, part := range parts[:len(parts)-1] {
		next, ok := section[part].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			section[part] = next
		}
		section = next
	}
	section[parts[len(parts)-1]] = value

	return saveConfigFile(config, configPath)
}

// UnsetValue removes a dotted-path key from the user config file. Removing a
// key falls back to the next precedence level (project, system, defaults).
func UnsetValue(key string) error {
	return UnsetValueIn(GetUserConfigPath(), key)
}

// UnsetValueIn removes a dotted-path key from a specific config file
func UnsetValueIn(configPath, key string) error {
	if key == "" {
		return errors.New("config key cannot be empty")
	}

	config, err := loadOrInitializeConfigFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to load config file")
	}

	parts := strings.Split(key, ".")
	section := config
	for _, part := range parts[:len(parts)-1] {
		next, ok := section[part].(map[string]interface{})
		if !ok {
			return nil // Path doesn't exist, nothing to unset
		}
		section = next
	}
	delete(section, parts[len(parts)-1])

	return saveConfigFile(config, configPath)
}
