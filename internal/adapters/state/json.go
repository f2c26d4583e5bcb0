package state

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/fsutil"
)

const jsonEnvelopeVersion = 1

// JSONStore keeps the whole store in one JSON document that is rewritten
// atomically after every change.
type JSONStore struct {
	*MemoryStore
	path string
}

type jsonDocument struct {
	Projects    map[string]*core.ContentState   `json:"projects"`
	Checkpoints map[string][]core.Checkpoint    `json:"checkpoints"`
	Feedback    map[string][]core.HumanFeedback `json:"feedback"`
}

type jsonEnvelope struct {
	Version   int             `json:"version"`
	Checksum  string          `json:"checksum"`
	UpdatedAt time.Time       `json:"updated_at"`
	Data      json.RawMessage `json:"data"`
}

// NewJSONStore opens or creates the document at path.
func NewJSONStore(path string, opts ...Option) (*JSONStore, error) {
	if err := fsutil.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	s := &JSONStore{MemoryStore: NewMemoryStore(opts...), path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	s.persist = s.write
	return s, nil
}

// Path returns the document location.
func (s *JSONStore) Path() string {
	return s.path
}

func (s *JSONStore) load() error {
	raw, ok, err := fsutil.ReadIfExists(s.path)
	if err != nil {
		return fmt.Errorf("reading state file: %w", err)
	}
	if !ok {
		return nil
	}

	var env jsonEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("parsing state file: %w", err)
	}
	if env.Version != jsonEnvelopeVersion {
		return fmt.Errorf("unsupported state file version %d", env.Version)
	}
	var data bytes.Buffer
	if err := json.Compact(&data, env.Data); err != nil {
		return fmt.Errorf("parsing state data: %w", err)
	}
	if sum := checksum(data.Bytes()); sum != env.Checksum {
		return core.ErrState("STATE_CORRUPTED", "state file checksum mismatch")
	}

	var doc jsonDocument
	if err := json.Unmarshal(data.Bytes(), &doc); err != nil {
		return fmt.Errorf("parsing state data: %w", err)
	}
	if doc.Projects != nil {
		s.projects = doc.Projects
	}
	if doc.Checkpoints != nil {
		s.checkpoints = doc.Checkpoints
	}
	if doc.Feedback != nil {
		s.feedback = doc.Feedback
	}
	return nil
}

// write runs with the embedded store's lock held.
func (s *JSONStore) write() error {
	data, err := json.Marshal(jsonDocument{
		Projects:    s.projects,
		Checkpoints: s.checkpoints,
		Feedback:    s.feedback,
	})
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	out, err := json.MarshalIndent(jsonEnvelope{
		Version:   jsonEnvelopeVersion,
		Checksum:  checksum(data),
		UpdatedAt: time.Now().UTC(),
		Data:      data,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}
	return atomicWriteFile(s.path, out, 0o600)
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
