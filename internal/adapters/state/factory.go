package state

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

// Backend names accepted by NewStateStore.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
	BackendMemory = "memory"
)

// NewStateStore creates the configured backend. For the file backends the
// path extension is adjusted to match (.db or .json).
func NewStateStore(backend, path string, opts ...Option) (core.StateStore, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendSQLite, "":
		return NewSQLiteStore(withExt(path, ".db"), opts...)
	case BackendJSON:
		return NewJSONStore(withExt(path, ".json"), opts...)
	case BackendMemory:
		return NewMemoryStore(opts...), nil
	default:
		return nil, core.ErrConfig(fmt.Sprintf("unknown state backend %q", backend))
	}
}

func withExt(path, ext string) string {
	if strings.HasSuffix(path, ext) {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// CloseStateStore closes a store, tolerating nil.
func CloseStateStore(s core.StateStore) error {
	if s == nil {
		return nil
	}
	return s.Close()
}
