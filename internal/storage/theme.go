package storage

import (
	"strings"

	"github.com/Mohsinsiddi/w3market/internal/config"
	"github.com/Mohsinsiddi/w3market/internal/errs"
)

// Theme names.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Themes is the persisted theme preference.
type Themes struct {
	store *Local
}

// NewThemes returns a theme preference backed by store.
func NewThemes(store *Local) *Themes {
	return &Themes{store: store}
}

// Current returns the stored theme. Missing, unreadable or unknown values
// degrade to dark.
func (t *Themes) Current() string {
	v := strings.ToLower(t.store.Get(config.KeyTheme).OrElse(ThemeDark))
	if v != ThemeLight {
		return ThemeDark
	}
	return v
}

// Set persists name, which must be dark or light.
func (t *Themes) Set(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name != ThemeDark && name != ThemeLight {
		return errs.Validation("unknown theme %q (want %s or %s)", name, ThemeDark, ThemeLight)
	}
	return t.store.Set(config.KeyTheme, name)
}

// Toggle flips between dark and light and returns the new theme.
func (t *Themes) Toggle() (string, error) {
	next := ThemeLight
	if t.Current() == ThemeLight {
		next = ThemeDark
	}
	if err := t.Set(next); err != nil {
		return t.Current(), err
	}
	return next, nil
}
