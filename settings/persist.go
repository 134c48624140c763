package settings

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/pam/errors"
	"github.com/teranos/pam/logger"
)

// SessionFileName is the pam-managed file under ~/.pam. It is merged after the
// user config and before the project config.
const SessionFileName = "session.toml"

// SessionPath returns ~/.pam/session.toml.
func SessionPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SessionFileName), nil
}

// UpdateLastUsedOrganization remembers url as session.last_used_organization_url.
func UpdateLastUsedOrganization(url string) error {
	config, path, err := loadOrInitializeSession()
	if err != nil {
		return errors.Wrap(err, "failed to load session config")
	}

	var session map[string]interface{}
	if s, ok := config["session"].(map[string]interface{}); ok {
		session = s
	} else {
		session = make(map[string]interface{})
	}
	session["last_used_organization_url"] = url
	config["session"] = session

	if err := saveSession(config, path); err != nil {
		return err
	}
	Reset()
	return nil
}

func loadOrInitializeSession() (map[string]interface{}, string, error) {
	path, err := SessionPath()
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirPermissions); err != nil {
		return nil, "", errors.Wrap(err, "failed to create .pam directory")
	}

	config := make(map[string]interface{})
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, "", errors.Wrapf(err, "failed to parse %s", path)
		}
	case !os.IsNotExist(err):
		return nil, "", errors.Wrapf(err, "failed to read %s", path)
	}
	return config, path, nil
}

func saveSession(config map[string]interface{}, path string) error {
	if err := createBackup(path); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal session config")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write session config")
	}
	return nil
}

// createBackup rotates path.back1..path.back3 and copies the current file to .back1.
func createBackup(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	back1 := path + ".back1"
	back2 := path + ".back2"
	back3 := path + ".back3"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		logger.Logger.Warnw("Failed to delete old backup", logger.FieldPath, back3, logger.FieldError, err)
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

	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(back1, content, 0644); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}
	return nil
}
