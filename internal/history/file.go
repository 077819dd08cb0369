// internal/history/file.go
package history

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/erilali/neonchat/internal/logger"
	"github.com/erilali/neonchat/internal/protocol"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileStore keeps one JSON-lines log per room under Dir. Logs rotate via
// lumberjack; Recent reads only the active file.
type FileStore struct {
	dir        string
	maxSizeMB  int
	maxBackups int
	logger     *logger.Logger

	mu      sync.Mutex
	writers map[string]*lumberjack.Logger
}

func NewFileStore(dir string, maxSizeMB, maxBackups int, log *logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir %s: %w", dir, err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &FileStore{
		dir:        dir,
		maxSizeMB:  maxSizeMB,
		maxBackups: maxBackups,
		logger:     log,
		writers:    make(map[string]*lumberjack.Logger),
	}, nil
}

func (s *FileStore) path(room string) string {
	return filepath.Join(s.dir, url.PathEscape(room)+".txt")
}

func (s *FileStore) writer(room string) *lumberjack.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.writers[room]
	if !ok {
		w = &lumberjack.Logger{
			Filename:   s.path(room),
			MaxSize:    s.maxSizeMB,
			MaxBackups: s.maxBackups,
		}
		s.writers[room] = w
	}
	return w
}

func (s *FileStore) Append(_ context.Context, room string, msg protocol.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	data = append(data, '\n')
	if _, err := s.writer(room).Write(data); err != nil {
		return fmt.Errorf("append history for %q: %w", room, err)
	}
	return nil
}

func (s *FileStore) Recent(_ context.Context, room string, limit int) ([]protocol.ChatMessage, error) {
	f, err := os.Open(s.path(room))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history for %q: %w", room, err)
	}
	defer f.Close()

	t := newTail(limit)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var msg protocol.ChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Warnf("Skipping corrupt history line in %s: %v", f.Name(), err)
			continue
		}
		t.push(msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read history for %q: %w", room, err)
	}
	return t.items, nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for room, w := range s.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close history for %q: %w", room, err))
		}
		delete(s.writers, room)
	}
	return errors.Join(errs...)
}
