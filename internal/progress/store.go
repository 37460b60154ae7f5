package progress

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcq-study/backend/internal/content"
	"github.com/mcq-study/backend/internal/saved"
)

// Store is the remote answer ledger. All writes are idempotent upserts keyed
// by (user id, question id).
type Store interface {
	Upsert(ctx context.Context, userID string, rec Record) error
	UpsertBatch(ctx context.Context, userID string, recs []Record) error
	ByUser(ctx context.Context, userID string) ([]Record, error)
	ByChapter(ctx context.Context, userID, chapterID string) ([]Record, error)
}

// SavedStore holds each user's saved-question snapshots, deduplicated by
// question id.
type SavedStore interface {
	Add(ctx context.Context, userID string, q content.Question) error
	Remove(ctx context.Context, userID, questionID string) error
	List(ctx context.Context, userID string) ([]content.Question, error)
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	records map[string]map[string]Record // userID -> questionID -> record
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory answer ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[string]Record),
	}
}

func (s *MemoryStore) Upsert(_ context.Context, userID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(userID, rec)
	return nil
}

func (s *MemoryStore) UpsertBatch(_ context.Context, userID string, recs []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		s.upsertLocked(userID, rec)
	}
	return nil
}

func (s *MemoryStore) upsertLocked(userID string, rec Record) {
	if rec.AnsweredAt.IsZero() {
		rec.AnsweredAt = time.Now()
	}
	byQuestion, ok := s.records[userID]
	if !ok {
		byQuestion = make(map[string]Record)
		s.records[userID] = byQuestion
	}
	byQuestion[rec.QuestionID] = rec
}

func (s *MemoryStore) ByUser(_ context.Context, userID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, rec := range s.records[userID] {
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

func (s *MemoryStore) ByChapter(_ context.Context, userID, chapterID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, rec := range s.records[userID] {
		if rec.ChapterID == chapterID {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out, nil
}

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].AnsweredAt.Equal(recs[j].AnsweredAt) {
			return recs[i].QuestionID < recs[j].QuestionID
		}
		return recs[i].AnsweredAt.Before(recs[j].AnsweredAt)
	})
}

// MemorySavedStore is an in-memory SavedStore implementation backed by one
// saved.Set per user, so the dedup-by-question-id invariant lives in the Set.
type MemorySavedStore struct {
	sets map[string]*saved.Set // userID -> set
	mu   sync.RWMutex
}

// NewMemorySavedStore creates a new in-memory saved-question store.
func NewMemorySavedStore() *MemorySavedStore {
	return &MemorySavedStore{
		sets: make(map[string]*saved.Set),
	}
}

func (s *MemorySavedStore) Add(_ context.Context, userID string, q content.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[userID]
	if !ok {
		set = saved.NewSet()
		s.sets[userID] = set
	}
	set.Add(q)
	return nil
}

func (s *MemorySavedStore) Remove(_ context.Context, userID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.sets[userID]; ok {
		set.Remove(questionID)
	}
	return nil
}

func (s *MemorySavedStore) List(_ context.Context, userID string) ([]content.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.sets[userID]
	if !ok {
		return nil, nil
	}
	return set.Questions(), nil
}
