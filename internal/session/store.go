// Package session provides JSONL persistence for conversation history and
// the compaction pass that shrinks stored tool output.
package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/chicdev/chic/internal/chat"
	"github.com/chicdev/chic/internal/paths"
)

// previewChunkSize is how much of a session file is read when listing, just
// enough to find the first user message.
const previewChunkSize = 16 * 1024

// maxPreviewLen caps the preview text shown in session listings.
const maxPreviewLen = 200

// Store persists session history as JSONL files under
// <root>/<project-key>/<session-id>.jsonl, where the project key is the
// working directory with slashes replaced by dashes.
type Store struct {
	root string
}

// Info is listing metadata for one stored session.
type Info struct {
	ID        string
	Preview   string
	UpdatedAt time.Time
	Size      int64
}

// DefaultRoot returns the default session root (~/.chic/projects).
func DefaultRoot() string {
	dir, err := paths.ProjectsDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "chic-projects")
	}
	return dir
}

// NewStore creates a store rooted at the given directory ("" uses
// DefaultRoot).
func NewStore(root string) *Store {
	if root == "" {
		root = DefaultRoot()
	}
	return &Store{root: root}
}

// projectKey flattens a working directory path into a directory name.
func projectKey(cwd string) string {
	return strings.ReplaceAll(filepath.Clean(cwd), string(filepath.Separator), "-")
}

func (s *Store) sessionPath(cwd, sessionID string) string {
	return filepath.Join(s.root, projectKey(cwd), sessionID+".jsonl")
}

// Append writes items to the end of a session file, creating it (and its
// project directory) as needed.
func (s *Store) Append(cwd, sessionID string, items []*chat.ChatItem) error {
	if len(items) == 0 {
		return nil
	}

	path := s.sessionPath(cwd, sessionID)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, item := range items {
		line, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal item %s: %w", item.ID, err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	return w.Flush()
}

// LoadHistory reads all items of a session in stored order.
func (s *Store) LoadHistory(cwd, sessionID string) ([]*chat.ChatItem, error) {
	f, err := os.Open(s.sessionPath(cwd, sessionID))
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer f.Close()

	var items []*chat.ChatItem
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var item chat.ChatItem
		if err := json.Unmarshal(line, &item); err != nil {
			return nil, fmt.Errorf("parse session line: %w", err)
		}
		items = append(items, &item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	return items, nil
}

// Rewrite atomically replaces a session's contents (temp file + rename).
// On any failure the original file is left untouched.
func (s *Store) Rewrite(cwd, sessionID string, items []*chat.ChatItem) error {
	path := s.sessionPath(cwd, sessionID)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, sessionID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	w := bufio.NewWriter(tmp)
	for _, item := range items {
		line, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal item %s: %w", item.ID, err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp session: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

// ListSessions returns stored sessions for a working directory, most
// recently updated first. Previews come from the first user message found
// in the leading chunk of each file.
func (s *Store) ListSessions(cwd string) ([]Info, error) {
	dir := filepath.Join(s.root, projectKey(cwd))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		fi, err := entry.Info()
		if err != nil || fi.Size() == 0 {
			continue
		}

		id := strings.TrimSuffix(name, ".jsonl")
		infos = append(infos, Info{
			ID:        id,
			Preview:   s.preview(filepath.Join(dir, name), fi.Size()),
			UpdatedAt: fi.ModTime(),
			Size:      fi.Size(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos, nil
}

// preview extracts the first user message text from the head of a session
// file. Returns "" if none is found in the first chunk.
func (s *Store) preview(path string, size int64) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	n := size
	if n > previewChunkSize {
		n = previewChunkSize
	}
	chunk := make([]byte, n)
	read, _ := f.Read(chunk)
	chunk = chunk[:read]

	for _, line := range bytes.Split(chunk, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var item chat.ChatItem
		if err := json.Unmarshal(line, &item); err != nil {
			continue
		}
		uc := item.User()
		if uc == nil || strings.TrimSpace(uc.Text) == "" {
			continue
		}
		text := strings.ReplaceAll(uc.Text, "\n", " ")
		if len(text) > maxPreviewLen {
			text = text[:maxPreviewLen] + "…"
		}
		return text
	}
	return ""
}
