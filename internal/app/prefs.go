package app

import (
	"encoding/json"
	"fmt"
	"sort"

	"nomnomhub/internal/config"
	"nomnomhub/internal/pkg"
)

// Preference keys accepted by SetPref
const (
	PrefNewProjectPath = "newProjectPath"
	PrefHubPath        = "hubPath"
	PrefEditorsPath    = "hubEditorsPath"
	PrefAppDataPath    = "hubAppDataPath"
)

// Prefs are the paths a user picked at runtime. Set values take precedence
// over the config file.
type Prefs struct {
	NewProjectPath string `json:"newProjectPath,omitempty"`
	HubPath        string `json:"hubPath,omitempty"`
	HubEditorsPath string `json:"hubEditorsPath,omitempty"`
	HubAppDataPath string `json:"hubAppDataPath,omitempty"`

	// Extra keeps keys written by other tools
	Extra map[string]json.RawMessage `json:"-"`
}

type prefsFields Prefs

func (p *Prefs) UnmarshalJSON(data []byte) error {
	var fields prefsFields
	extra, err := pkg.SplitExtra(data, &fields, PrefNewProjectPath, PrefHubPath, PrefEditorsPath, PrefAppDataPath)
	if err != nil {
		return err
	}
	*p = Prefs(fields)
	p.Extra = extra
	return nil
}

func (p Prefs) MarshalJSON() ([]byte, error) {
	return pkg.MergeExtra(prefsFields(p), p.Extra)
}

// PrefKeys lists the keys SetPref accepts, sorted
func PrefKeys() []string {
	keys := []string{PrefNewProjectPath, PrefHubPath, PrefEditorsPath, PrefAppDataPath}
	sort.Strings(keys)
	return keys
}

// Set assigns one preference. An empty value clears it.
func (p *Prefs) Set(key, value string) error {
	switch key {
	case PrefNewProjectPath:
		p.NewProjectPath = value
	case PrefHubPath:
		p.HubPath = value
	case PrefEditorsPath:
		p.HubEditorsPath = value
	case PrefAppDataPath:
		p.HubAppDataPath = value
	default:
		return pkg.NewError(pkg.ErrInvalidFormat, fmt.Sprintf("unknown preference %q", key)).With("keys", PrefKeys())
	}
	return nil
}

// Apply overlays the set preferences onto cfg
func (p Prefs) Apply(cfg config.Config) config.Config {
	if p.NewProjectPath != "" {
		cfg.NewProjectPath = p.NewProjectPath
	}
	if p.HubPath != "" {
		cfg.HubPath = p.HubPath
	}
	if p.HubEditorsPath != "" {
		cfg.EditorsPath = p.HubEditorsPath
	}
	if p.HubAppDataPath != "" {
		cfg.AppDataPath = p.HubAppDataPath
	}
	return cfg
}

// Prefs returns a copy of the current preferences
func (c *Context) Prefs() Prefs {
	c.prefsMu.RLock()
	defer c.prefsMu.RUnlock()
	return c.prefs
}

// SetPref changes one preference and saves the result. Changing the editors
// path drops the discovered editor list.
func (c *Context) SetPref(key, value string) error {
	c.prefsMu.Lock()
	next := c.prefs
	if err := next.Set(key, value); err != nil {
		c.prefsMu.Unlock()
		return err
	}
	c.prefs = next
	c.prefsMu.Unlock()

	if err := c.prefsStore.Save(next); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}

	if key == PrefEditorsPath {
		c.editorsMu.Lock()
		c.editors = nil
		c.editorsMu.Unlock()
	}
	c.Logger.Debug("preference updated", "key", key, "value", value)
	return nil
}

// Settings returns the config with preferences applied
func (c *Context) Settings() config.Config {
	return c.Prefs().Apply(c.Config)
}
