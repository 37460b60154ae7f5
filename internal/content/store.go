package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a chapter is absent from the content store.
var ErrNotFound = errors.New("chapter not found")

// Store provides read access to chapters and the manifest.
type Store interface {
	Manifest() []Summary
	Chapter(id string) (*Chapter, error)
	BySubject(subject string) []Summary
	Subjects() []Subject
}

// FSStore loads chapter JSON documents from a directory and caches them.
// The directory holds one <chapterID>.json per chapter, a manifest.json
// listing available chapters, and an optional subjects.yaml registry.
type FSStore struct {
	rootDir  string
	chapters map[string]*Chapter
	manifest []Summary
	subjects []Subject
	mu       sync.RWMutex
}

type manifestDoc struct {
	Chapters []Summary `json:"chapters"`
}

type subjectsDoc struct {
	Subjects []Subject `yaml:"subjects"`
}

// NewFSStore creates a store and loads all content from rootDir.
func NewFSStore(rootDir string) (*FSStore, error) {
	s := &FSStore{
		rootDir:  rootDir,
		chapters: make(map[string]*Chapter),
	}

	if err := s.loadAll(); err != nil {
		return nil, fmt.Errorf("loading content: %w", err)
	}

	slog.Info("content loaded",
		"chapters", len(s.chapters),
		"subjects", len(s.subjects),
	)
	return s, nil
}

// Manifest returns the available chapter summaries in manifest order.
func (s *FSStore) Manifest() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, len(s.manifest))
	copy(out, s.manifest)
	return out
}

// Chapter returns a full chapter by id.
func (s *FSStore) Chapter(id string) (*Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.chapters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return ch, nil
}

// BySubject returns manifest entries whose chapter id carries the subject prefix.
func (s *FSStore) BySubject(subject string) []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Summary
	for _, sum := range s.manifest {
		if strings.EqualFold(SubjectOf(sum.ID), subject) {
			out = append(out, sum)
		}
	}
	return out
}

// Subjects returns the subject registry. When no subjects.yaml is present the
// registry is derived from the distinct chapter-id prefixes.
func (s *FSStore) Subjects() []Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Subject, len(s.subjects))
	copy(out, s.subjects)
	return out
}

func (s *FSStore) loadAll() error {
	if err := s.loadManifest(); err != nil {
		return err
	}

	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		return fmt.Errorf("reading content dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || e.Name() == "manifest.json" {
			continue
		}
		s.loadChapter(filepath.Join(s.rootDir, e.Name()))
	}

	s.loadSubjects()
	return nil
}

func (s *FSStore) loadManifest() error {
	data, err := os.ReadFile(filepath.Join(s.rootDir, "manifest.json"))
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("manifest.json missing, chapter list will be empty", "dir", s.rootDir)
			return nil
		}
		return fmt.Errorf("reading manifest: %w", err)
	}

	var doc manifestDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing manifest: %w", err)
	}
	s.manifest = doc.Chapters
	return nil
}

// loadChapter parses one chapter document. Malformed documents are skipped
// whole, never partially accepted.
func (s *FSStore) loadChapter(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("skipping unreadable chapter file", "path", path, "error", err)
		return
	}

	if issues, err := Validate(data); err != nil || len(issues) > 0 {
		slog.Warn("skipping invalid chapter document",
			"path", path,
			"issues", len(issues),
			"error", err,
		)
		return
	}

	var ch Chapter
	if err := json.Unmarshal(data, &ch); err != nil {
		slog.Warn("skipping unparseable chapter document", "path", path, "error", err)
		return
	}

	// Questions inherit the owning chapter id when the document omits it.
	for i := range ch.Questions {
		if ch.Questions[i].ChapterID == "" {
			ch.Questions[i].ChapterID = ch.ID
		}
	}

	s.chapters[ch.ID] = &ch

	// Keep manifest entries honest about question counts.
	for i := range s.manifest {
		if s.manifest[i].ID == ch.ID && s.manifest[i].QuestionCount == 0 {
			s.manifest[i].QuestionCount = len(ch.Questions)
		}
	}
}

func (s *FSStore) loadSubjects() {
	data, err := os.ReadFile(filepath.Join(s.rootDir, "subjects.yaml"))
	if err == nil {
		var doc subjectsDoc
		if err := yaml.Unmarshal(data, &doc); err == nil && len(doc.Subjects) > 0 {
			s.subjects = doc.Subjects
			return
		}
		slog.Warn("ignoring invalid subjects.yaml", "error", err)
	}

	// Derive from chapter id prefixes.
	seen := make(map[string]bool)
	for _, sum := range s.manifest {
		token := SubjectOf(sum.ID)
		if token != "" && !seen[token] {
			seen[token] = true
			s.subjects = append(s.subjects, Subject{Token: token, Name: strings.ToUpper(token)})
		}
	}
	sort.Slice(s.subjects, func(i, j int) bool { return s.subjects[i].Token < s.subjects[j].Token })
}
