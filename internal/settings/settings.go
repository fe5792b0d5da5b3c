// Package settings persists the category list, theme and default currency
// under well-known keys. Consumers never share a mutable settings object:
// they read immutable snapshots and subscribe to a change event.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"spendlog/internal/kv"
	"spendlog/internal/log"
	"spendlog/internal/notify"
)

const (
	keyCategories = "settings_categories"       // JSON-encoded array
	keyTheme      = "settings_appearance_theme" // plain scalar
	keyCurrency   = "settings_default_currency" // plain scalar
)

// Defaults mirror the original application.
var defaultCategories = []string{"Food", "Transportation", "Entertainment"}

const (
	defaultTheme    = "light"
	defaultCurrency = "USD"
)

// Snapshot is an immutable copy of the current settings.
type Snapshot struct {
	Categories []string
	Theme      string
	Currency   string
}

type Service struct {
	backend  kv.Store
	logger   *log.Logger
	notifier *notify.Notifier

	mu         sync.Mutex
	categories []string
	theme      string
	currency   string
}

func New(backend kv.Store, logger *log.Logger) *Service {
	return &Service{
		backend:    backend,
		logger:     logger.WithComponent("settings"),
		notifier:   notify.New(),
		categories: append([]string(nil), defaultCategories...),
		theme:      defaultTheme,
		currency:   defaultCurrency,
	}
}

// Subscribe registers a callback fired after any setting changes.
func (s *Service) Subscribe(cb notify.Callback) notify.Subscription {
	return s.notifier.Subscribe(cb)
}

// Load reads all settings from the backend. Backend or decode failures fall
// back to the defaults with a warning; Load never fails the startup path.
func (s *Service) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if raw, ok, err := s.backend.Get(ctx, keyCategories); err != nil {
		s.logger.Warn("Reading categories failed, using defaults", "error", err)
	} else if ok {
		var cats []string
		if err := json.Unmarshal([]byte(raw), &cats); err != nil {
			s.logger.Warn("Persisted categories unparseable, using defaults", "error", err)
		} else if len(cats) > 0 {
			s.categories = cats
		}
	}

	if v, ok, err := s.backend.Get(ctx, keyTheme); err != nil {
		s.logger.Warn("Reading theme failed, using default", "error", err)
	} else if ok && v != "" {
		s.theme = v
	}

	if v, ok, err := s.backend.Get(ctx, keyCurrency); err != nil {
		s.logger.Warn("Reading currency failed, using default", "error", err)
	} else if ok && v != "" {
		s.currency = v
	}

	s.logger.Info("Settings loaded",
		"categories", len(s.categories), "theme", s.theme, "currency", s.currency)
}

// Snapshot returns an immutable copy of the current settings.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Categories: append([]string(nil), s.categories...),
		Theme:      s.theme,
		Currency:   s.currency,
	}
}

// AddCategory appends a new category. Blank or duplicate names are no-ops.
func (s *Service) AddCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	s.mu.Lock()
	for _, c := range s.categories {
		if c == name {
			s.mu.Unlock()
			return nil
		}
	}
	updated := append(append([]string(nil), s.categories...), name)
	if err := s.persistCategoriesLocked(ctx, updated); err != nil {
		s.mu.Unlock()
		return err
	}
	s.categories = updated
	s.mu.Unlock()

	s.notifier.Publish()
	return nil
}

// RemoveCategory deletes a category by name; absent names are a no-op.
func (s *Service) RemoveCategory(ctx context.Context, name string) error {
	s.mu.Lock()
	updated := make([]string, 0, len(s.categories))
	for _, c := range s.categories {
		if c != name {
			updated = append(updated, c)
		}
	}
	if len(updated) == len(s.categories) {
		s.mu.Unlock()
		return nil
	}
	if err := s.persistCategoriesLocked(ctx, updated); err != nil {
		s.mu.Unlock()
		return err
	}
	s.categories = updated
	s.mu.Unlock()

	s.notifier.Publish()
	return nil
}

// SetTheme persists the appearance theme.
func (s *Service) SetTheme(ctx context.Context, theme string) error {
	return s.setScalar(ctx, keyTheme, theme, &s.theme)
}

// SetCurrency persists the default currency. The currency is display-only:
// it never influences amount-range thresholds.
func (s *Service) SetCurrency(ctx context.Context, currency string) error {
	return s.setScalar(ctx, keyCurrency, currency, &s.currency)
}

func (s *Service) setScalar(ctx context.Context, key, value string, field *string) error {
	s.mu.Lock()
	if *field == value {
		s.mu.Unlock()
		return nil
	}
	if err := s.backend.Set(ctx, key, value); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist %s: %w", key, err)
	}
	*field = value
	s.mu.Unlock()

	s.notifier.Publish()
	return nil
}

func (s *Service) persistCategoriesLocked(ctx context.Context, cats []string) error {
	encoded, err := json.Marshal(cats)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	if err := s.backend.Set(ctx, keyCategories, string(encoded)); err != nil {
		return fmt.Errorf("persist categories: %w", err)
	}
	return nil
}
