package provider

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

// ProviderConfig is the registration-time configuration of a provider. The
// registry stores one per provider identity and hands copies to constructors.
type ProviderConfig struct {
	ID       string
	Name     string
	Type     string // classification, e.g. "metadata", "tracker", "local"
	Enabled  bool
	Priority int // lower is preferred

	Connection ConnectionConfig
	Settings   map[string]interface{}
}

// ConnectionConfig groups endpoint and credential settings.
type ConnectionConfig struct {
	BaseURL     string
	APIKey      string
	AccessToken string
	Timeout     time.Duration
}

// Clone returns a deep copy of the configuration. Setting values that are
// themselves maps or slices are shared.
func (c ProviderConfig) Clone() ProviderConfig {
	out := c
	if c.Settings != nil {
		out.Settings = maps.Clone(c.Settings)
	}
	return out
}

// Validate checks the presence of required fields: id, name and type must be
// non-empty and priority must not be negative.
func (c ProviderConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.Type) == "" {
		missing = append(missing, "type")
	}
	if len(missing) > 0 {
		return &ProviderError{
			Provider: c.ID,
			Code:     CodeMissingConfig,
			Message:  fmt.Sprintf("missing required provider config: %s", strings.Join(missing, ", ")),
		}
	}
	if c.Priority < 0 {
		return &ProviderError{
			Provider: c.ID,
			Code:     CodeInvalidConfig,
			Message:  fmt.Sprintf("priority must be a non-negative number, got %d", c.Priority),
		}
	}
	return nil
}

// StringSetting returns a string setting, or fallback when it is absent or not
// a string.
func (c ProviderConfig) StringSetting(key, fallback string) string {
	if v, ok := c.Settings[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// BoolSetting returns a bool setting, or fallback.
func (c ProviderConfig) BoolSetting(key string, fallback bool) bool {
	if v, ok := c.Settings[key].(bool); ok {
		return v
	}
	return fallback
}

// IntSetting returns an int setting, or fallback. JSON numbers decoded as
// float64 are accepted.
func (c ProviderConfig) IntSetting(key string, fallback int) int {
	switch v := c.Settings[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

// ConfigUpdate is a partial update applied by the registry. Nil fields are
// left untouched; Settings entries are merged key by key.
type ConfigUpdate struct {
	Name       *string
	Type       *string
	Enabled    *bool
	Priority   *int
	Connection *ConnectionConfig
	Settings   map[string]interface{}
}

// Apply returns a copy of c with the update applied.
func (u ConfigUpdate) Apply(c ProviderConfig) ProviderConfig {
	out := c.Clone()
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.Type != nil {
		out.Type = *u.Type
	}
	if u.Enabled != nil {
		out.Enabled = *u.Enabled
	}
	if u.Priority != nil {
		out.Priority = *u.Priority
	}
	if u.Connection != nil {
		out.Connection = *u.Connection
	}
	if len(u.Settings) > 0 {
		if out.Settings == nil {
			out.Settings = make(map[string]interface{}, len(u.Settings))
		}
		for k, v := range u.Settings {
			out.Settings[k] = v
		}
	}
	return out
}
