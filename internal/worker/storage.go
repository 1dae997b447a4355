package worker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// retentionAge: operations older than this are dropped on load. A week-old
	// mutation replayed against current stock does more harm than good.
	retentionAge = 7 * 24 * time.Hour

	// maxFileBytes caps the persisted queue. When exceeded the store keeps
	// only the newest operations so the backlog drains instead of growing.
	maxFileBytes      = 4 << 20
	overflowKeepCount = 10

	// emergencyKeepCount is the degraded-mode size: when the write itself
	// fails (disk full, quota) the store shrinks to the newest operations
	// and tries once more before giving up.
	emergencyKeepCount = 5
)

// FileStore persists the offline operation queue as a JSON file. Every
// mutation of the queue is written through synchronously; a crash never
// loses an acknowledged enqueue.
type FileStore struct {
	mu   sync.Mutex
	path string

	writeFile func(name string, data []byte, perm os.FileMode) error
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, writeFile: os.WriteFile}
}

// Load reads the persisted queue, dropping malformed entries and entries past
// the retention window. A missing file is an empty queue; a corrupt file is
// logged and treated as empty rather than blocking startup.
func (s *FileStore) Load() []QueuedOperation {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Error().Err(err).Str("path", s.path).Msg("queue store: read failed")
		}
		return nil
	}

	var ops []QueuedOperation
	if err := json.Unmarshal(raw, &ops); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("queue store: corrupt file, starting empty")
		return nil
	}

	cutoff := time.Now().Add(-retentionAge)
	kept := ops[:0]
	for _, op := range ops {
		if op.ID == "" || op.Type == "" || len(op.Data) == 0 {
			log.Warn().Str("op_id", op.ID).Msg("queue store: dropping malformed operation")
			continue
		}
		if op.Timestamp.Before(cutoff) {
			log.Warn().Str("op_id", op.ID).Time("ts", op.Timestamp).Msg("queue store: dropping expired operation")
			continue
		}
		kept = append(kept, op)
	}

	if len(kept) != len(ops) {
		if _, err := s.saveLocked(kept); err != nil {
			log.Error().Err(err).Str("path", s.path).Msg("queue store: rewrite after prune failed")
		}
	}
	return kept
}

// Save persists the queue atomically (temp file + rename). Oversized queues
// are truncated to the newest operations; a write the disk rejects triggers
// one degraded retry with only the newest operations. The slice actually
// persisted is returned so callers stay in sync with disk.
func (s *FileStore) Save(ops []QueuedOperation) ([]QueuedOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ops)
}

func (s *FileStore) saveLocked(ops []QueuedOperation) ([]QueuedOperation, error) {
	raw, err := json.Marshal(ops)
	if err != nil {
		return nil, err
	}

	if len(raw) > maxFileBytes && len(ops) > overflowKeepCount {
		log.Warn().
			Int("bytes", len(raw)).
			Int("dropped", len(ops)-overflowKeepCount).
			Msg("queue store: over capacity, keeping newest operations")
		ops = append([]QueuedOperation(nil), ops[len(ops)-overflowKeepCount:]...)
		if raw, err = json.Marshal(ops); err != nil {
			return nil, err
		}
	}

	writeErr := s.writeOut(raw)
	if writeErr == nil {
		return ops, nil
	}

	// Degraded mode: the disk rejected the write. Shrink to the newest
	// operations and try once more.
	if len(ops) > emergencyKeepCount {
		shrunk := append([]QueuedOperation(nil), ops[len(ops)-emergencyKeepCount:]...)
		raw, err = json.Marshal(shrunk)
		if err != nil {
			return nil, writeErr
		}
		if err := s.writeOut(raw); err == nil {
			log.Warn().
				Err(writeErr).
				Int("dropped", len(ops)-emergencyKeepCount).
				Msg("queue store: write failed, kept newest operations only")
			return shrunk, nil
		}
	}
	return nil, writeErr
}

func (s *FileStore) writeOut(raw []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := s.writeFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
