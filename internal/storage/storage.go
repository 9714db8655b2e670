// Package storage provides durable copies of the verdict mapping.
//
// Two backends are available:
//  1. JSONFile: one JSON object at a fixed path (default, compatible with
//     feedback files written by earlier versions of the tool)
//  2. SQLite: one row per complaint with a version counter (optional)
//
// Both satisfy verdict.Repository. The review session only touches durable
// storage when the reviewer saves.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	qcerrors "github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/errors"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/verdict"

	"go.uber.org/zap"
)

// bufferSize for buffered I/O (64KB)
const bufferSize = 64 * 1024

// JSONFile stores the whole verdict mapping as one JSON object:
//
//	{"<complaint number>": {"Quality": "<label>", "comment": "<reason>"}}
//
// Saves replace the file atomically: the mapping is written to a temporary
// file in the same directory, synced, and renamed over the target.
type JSONFile struct {
	mu     sync.Mutex // Serializes saves from concurrent sessions
	path   string
	logger *zap.Logger
}

// NewJSONFile creates a JSON file repository for path.
func NewJSONFile(path string, logger *zap.Logger) *JSONFile {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONFile{path: path, logger: logger}
}

// Path returns the file location.
func (j *JSONFile) Path() string {
	return j.path
}

// Init creates the file holding an empty mapping when it does not exist yet,
// so later loads never special-case a missing store.
func (j *JSONFile) Init() error {
	if _, err := os.Stat(j.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return qcerrors.NewPersistenceError("init", j.path, err)
	}

	j.logger.Info("📋 No existing verdict file found. Creating new one...", zap.String("path", j.path))
	return j.Save(map[string]verdict.Verdict{})
}

// Load reads the full mapping.
func (j *JSONFile) Load() (map[string]verdict.Verdict, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		return nil, qcerrors.NewPersistenceError("load", j.path, err)
	}

	out := make(map[string]verdict.Verdict)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, qcerrors.NewPersistenceError("load", j.path, err)
	}
	return out, nil
}

// Save atomically replaces the file with the given mapping.
//
// Flow:
//  1. Create a temp file next to the target (same filesystem, so rename is atomic)
//  2. Encode the mapping through a buffered writer
//  3. Flush, fsync and close the temp file
//  4. Rename over the target
//
// If any step fails the temp file is removed and the previous copy is intact.
func (j *JSONFile) Save(verdicts map[string]verdict.Verdict) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	dir := filepath.Dir(j.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(j.path)+".*.tmp")
	if err != nil {
		return qcerrors.NewPersistenceError("save", j.path, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	bufferedWriter := bufio.NewWriterSize(tmp, bufferSize)
	if err := json.NewEncoder(bufferedWriter).Encode(verdicts); err != nil {
		return qcerrors.NewPersistenceError("save", j.path, fmt.Errorf("encode: %w", err))
	}
	if err := bufferedWriter.Flush(); err != nil {
		return qcerrors.NewPersistenceError("save", j.path, err)
	}
	if err := tmp.Sync(); err != nil {
		return qcerrors.NewPersistenceError("save", j.path, err)
	}
	if err := tmp.Close(); err != nil {
		return qcerrors.NewPersistenceError("save", j.path, err)
	}
	if err := os.Rename(tmpName, j.path); err != nil {
		os.Remove(tmpName)
		committed = true
		return qcerrors.NewPersistenceError("save", j.path, err)
	}
	committed = true

	j.logger.Debug("verdict file written", zap.String("path", j.path), zap.Int("count", len(verdicts)))
	return nil
}
