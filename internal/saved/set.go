package saved

import (
	"time"

	"github.com/mcq-study/backend/internal/content"
)

// Entry is a saved question with the moment it was bookmarked. The question
// is stored as a full snapshot so review works even after the source chapter
// changes or disappears.
type Entry struct {
	Question content.Question `json:"question"`
	SavedAt  time.Time        `json:"savedAt"`
}

// Set is an in-memory collection of saved questions, deduplicated by
// question id. Saving an id again refreshes the stored snapshot but keeps
// the original save time and position. Set is not safe for concurrent use.
type Set struct {
	entries []Entry
	byID    map[string]int
	now     func() time.Time
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{byID: make(map[string]int), now: time.Now}
}

// Add saves a question snapshot. Returns false when the id was already in
// the set; the snapshot is refreshed either way.
func (s *Set) Add(q content.Question) bool {
	if i, ok := s.byID[q.ID]; ok {
		s.entries[i].Question = q
		return false
	}
	s.byID[q.ID] = len(s.entries)
	s.entries = append(s.entries, Entry{Question: q, SavedAt: s.now()})
	return true
}

// Remove drops a question by id. Returns false when the id is not present.
func (s *Set) Remove(questionID string) bool {
	i, ok := s.byID[questionID]
	if !ok {
		return false
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.byID, questionID)
	for j := i; j < len(s.entries); j++ {
		s.byID[s.entries[j].Question.ID] = j
	}
	return true
}

// Contains reports whether a question id is saved.
func (s *Set) Contains(questionID string) bool {
	_, ok := s.byID[questionID]
	return ok
}

// Len returns the number of saved questions.
func (s *Set) Len() int { return len(s.entries) }

// Questions returns the saved question snapshots in insertion order.
func (s *Set) Questions() []content.Question {
	out := make([]content.Question, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Question
	}
	return out
}

// Categorized groups the saved questions by subject and chapter.
func (s *Set) Categorized() Categorized {
	return Categorize(s.Questions())
}
