package ui

import (
	"context"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// PrefsKey is the local storage key of UIPreferences.
const PrefsKey = "ui_prefs"

// TablePrefs stores per-table UI preferences.
type TablePrefs struct {
	SortKey       string   `json:"sort_key"`
	SortDesc      bool     `json:"sort_desc"`
	HiddenColumns []string `json:"hidden_columns"`
	ActiveColumn  string   `json:"active_column"`
}

// UIPreferences stores persisted app preferences.
type UIPreferences struct {
	Cities    TablePrefs `json:"cities"`
	Countries TablePrefs `json:"countries"`
}

// DefaultUIPreferences is used when nothing has been saved yet.
func DefaultUIPreferences() UIPreferences {
	return UIPreferences{}
}

// PrefsStore loads and saves UIPreferences. persist.Value[UIPreferences]
// satisfies it.
type PrefsStore interface {
	Get(ctx context.Context) UIPreferences
	Set(ctx context.Context, prefs UIPreferences) error
}

func loadUIPreferences(store PrefsStore) UIPreferences {
	if store == nil {
		return DefaultUIPreferences()
	}
	return store.Get(context.Background())
}

// prefsWriter serializes preference saves. Each save is numbered when it is
// queued, and a snapshot older than the last one written is dropped, so tea.Cmd
// goroutines finishing out of order never roll the stored value back.
type prefsWriter struct {
	store  PrefsStore
	logger *slog.Logger

	mu      sync.Mutex
	queued  uint64
	written uint64
}

func newPrefsWriter(store PrefsStore, logger *slog.Logger) *prefsWriter {
	if store == nil {
		return nil
	}
	return &prefsWriter{store: store, logger: logger}
}

func (w *prefsWriter) save(value UIPreferences) tea.Cmd {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	w.queued++
	seq := w.queued
	w.mu.Unlock()

	return func() tea.Msg {
		w.write(seq, value)
		return nil
	}
}

func (w *prefsWriter) write(seq uint64, value UIPreferences) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if seq <= w.written {
		return
	}
	if err := w.store.Set(context.Background(), value); err != nil {
		w.logger.Warn("failed to save ui preferences", slog.Any("error", err))
		return
	}
	w.written = seq
}
