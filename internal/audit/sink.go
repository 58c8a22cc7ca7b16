package audit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const genesisInput = "sudo-mcp-genesis"

// tailChunk is the read size used when scanning backwards for the last record.
const tailChunk = 64 * 1024

// Sink is an append-only, hash-chained audit log writer. It owns the only
// lock guarding the file; concurrent Record calls never interleave lines.
type Sink struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	ready    bool
	seq      uint64
	prevHash string
	lastTime time.Time
}

// NewSink returns a Sink appending to path. Nothing touches the filesystem
// until the first Record.
func NewSink(path string, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sink{
		path:     path,
		logger:   logger,
		prevHash: genesisHash(),
	}
}

// Path returns the audit log file path.
func (s *Sink) Path() string {
	return s.path
}

// Record appends r as one JSON line. It never fails from the caller's point
// of view: errors are logged and the request carries on.
func (s *Sink) Record(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.init()

	r.Seq = s.seq + 1
	r.Time = time.Now().UTC()
	if r.Time.Before(s.lastTime) {
		r.Time = s.lastTime
	}
	r.PrevHash = s.prevHash
	r.Hash = computeHash(r)

	data, err := json.Marshal(r)
	if err != nil {
		s.logger.Error("marshal audit record", "seq", r.Seq, "err", err)
		return
	}
	data = append(data, '\n')

	if err := s.appendLine(data); err != nil {
		s.logger.Error("write audit log", "path", s.path, "seq", r.Seq, "err", err)
		return
	}

	// The chain only advances once the line is on disk.
	s.seq = r.Seq
	s.prevHash = r.Hash
	s.lastTime = r.Time
}

func (s *Sink) appendLine(data []byte) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if errors.Is(err, fs.ErrNotExist) {
		// The directory went away after startup, e.g. log cleanup.
		if mkErr := os.MkdirAll(filepath.Dir(s.path), 0700); mkErr == nil {
			f, err = os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		}
	}
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write audit record: %w", err)
	}
	return f.Close()
}

// init runs once, on first use, with s.mu held. It creates the log directory
// and resumes the hash chain from the last record already on disk. Failures
// are logged; later records are still attempted.
func (s *Sink) init() {
	if s.ready {
		return
	}
	s.ready = true

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			s.logger.Warn("create audit log directory", "dir", dir, "err", err)
		}
	}

	line, err := readLastLine(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read audit log tail", "path", s.path, "err", err)
		}
		return
	}
	if len(line) == 0 {
		return
	}
	var last Record
	if err := json.Unmarshal(line, &last); err != nil {
		s.logger.Warn("audit log ends with an unreadable record; starting a new chain",
			"path", s.path, "err", err)
		return
	}
	s.seq = last.Seq
	s.prevHash = last.Hash
	s.lastTime = last.Time
}

// readLastLine returns the final non-empty line of the file without reading
// the whole log.
func readLastLine(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	var tail []byte
	for end := info.Size(); end > 0; {
		start := max(end-tailChunk, 0)
		chunk := make([]byte, end-start)
		if _, err := f.ReadAt(chunk, start); err != nil && err != io.EOF {
			return nil, err
		}
		tail = append(chunk, tail...)
		trimmed := bytes.TrimRight(tail, "\n")
		if i := bytes.LastIndexByte(trimmed, '\n'); i >= 0 {
			return trimmed[i+1:], nil
		}
		if start == 0 {
			return trimmed, nil
		}
		end = start
	}
	return nil, nil
}

// genesisHash anchors the chain: the first record's prev_hash.
var genesisHash = sync.OnceValue(func() string {
	sum := sha256.Sum256([]byte(genesisInput))
	return hex.EncodeToString(sum[:])
})

// computeHash is the SHA-256 of the record's JSON encoding with Hash blank.
func computeHash(r Record) string {
	r.Hash = ""
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
