package system

import (
	"errors"

	"enton/internal/logging"
)

// Close stops background task modules and persists state: the world model,
// the lifecycle file and the memory database. It is safe to call twice.
//
// Closing the store matters in tests on Windows, where an open SQLite handle
// prevents TempDir cleanup.
func (m *Mind) Close() error {
	if m == nil || m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for _, t := range m.Tasks {
		t.Close()
	}
	if err := m.Prediction.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	if err := m.Lifecycle.OnShutdown(m.components()); err != nil {
		errs = append(errs, err)
	}
	if err := m.Store.Close(); err != nil {
		errs = append(errs, err)
	}

	logging.Boot("mind closed")
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
