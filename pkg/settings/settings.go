// Package settings manages persistent user settings for the addrbatch CLI,
// environment overrides, and YAML batch profiles, and merges them into the
// parameters of one batch.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Settings holds persistent user preferences
type Settings struct {
	// DefaultUser is the login used when -u is not specified
	DefaultUser string `json:"default_user,omitempty"`

	// DefaultDeviceType is the dialect used when -t is not specified
	DefaultDeviceType string `json:"default_device_type,omitempty"`

	// DefaultZone is the security zone used when -z is not specified
	DefaultZone string `json:"default_zone,omitempty"`

	// DefaultGroupLimit caps group size when -g is not specified
	DefaultGroupLimit int `json:"default_group_limit,omitempty"`

	// AuditLog is the path of the run audit trail; empty disables it
	AuditLog string `json:"audit_log,omitempty"`
}

// Keys lists the settable names in display order.
var Keys = []string{"default_user", "default_device_type", "default_zone", "default_group_limit", "audit_log"}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "addrbatch_settings.json"
	}
	return filepath.Join(home, ".addrbatch", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Get returns a setting by name, "" when unset.
func (s *Settings) Get(key string) (string, error) {
	switch key {
	case "default_user", "user":
		return s.DefaultUser, nil
	case "default_device_type", "device_type":
		return s.DefaultDeviceType, nil
	case "default_zone", "zone":
		return s.DefaultZone, nil
	case "default_group_limit", "group_limit":
		if s.DefaultGroupLimit == 0 {
			return "", nil
		}
		return strconv.Itoa(s.DefaultGroupLimit), nil
	case "audit_log":
		return s.AuditLog, nil
	}
	return "", unknownKey(key)
}

// Set assigns a setting by name.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "default_user", "user":
		s.DefaultUser = value
	case "default_device_type", "device_type":
		s.DefaultDeviceType = value
	case "default_zone", "zone":
		s.DefaultZone = value
	case "default_group_limit", "group_limit":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("group limit must be a positive integer, got %q", value)
		}
		s.DefaultGroupLimit = n
	case "audit_log":
		s.AuditLog = value
	default:
		return unknownKey(key)
	}
	return nil
}

// Values returns the settings as the lowest-precedence configuration layer.
// A stored group limit of 0 is unset; Set never stores it.
func (s *Settings) Values() Values {
	v := Values{
		DeviceType: s.DefaultDeviceType,
		Zone:       s.DefaultZone,
		User:       s.DefaultUser,
	}
	if s.DefaultGroupLimit != 0 {
		v.GroupLimit = Limit(s.DefaultGroupLimit)
	}
	return v
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown setting: %s (valid: default_user, default_device_type, default_zone, default_group_limit, audit_log)", key)
}
