// Package saved groups a user's saved questions for review.
//
// Questions are bucketed by subject and chapter so the review screen can
// render one section per subject with a sub-list per chapter. Grouping keys
// come from chapter ids of the form "<subject>-<chapter>[-...]"; when a
// question carries no usable chapter id its own id is parsed instead, and
// when neither yields a key the question lands in the shared fallback
// bucket.
package saved

import (
	"sort"
	"strings"

	"github.com/mcq-study/backend/internal/content"
)

// Fallback bucket for questions whose ids carry no subject-chapter shape.
const (
	FallbackSubject = "uncategorized"
	FallbackChapter = "general"
)

// Categorized maps subject token to chapter token to the questions in that
// chapter, preserving the order questions were given in.
type Categorized map[string]map[string][]content.Question

// Categorize buckets questions by subject and chapter. The chapter id is the
// primary grouping key; the question id is the fallback; questions with
// neither go under (FallbackSubject, FallbackChapter). Input order is kept
// within each bucket.
func Categorize(questions []content.Question) Categorized {
	out := make(Categorized)
	for _, q := range questions {
		subject, chapter := keyFor(q)
		byChapter, ok := out[subject]
		if !ok {
			byChapter = make(map[string][]content.Question)
			out[subject] = byChapter
		}
		byChapter[chapter] = append(byChapter[chapter], q)
	}
	return out
}

// keyFor derives the (subject, chapter) bucket for a question.
func keyFor(q content.Question) (string, string) {
	if s, c, ok := splitKey(q.ChapterID); ok {
		return s, c
	}
	if s, c, ok := splitKey(q.ID); ok {
		return s, c
	}
	return FallbackSubject, FallbackChapter
}

// splitKey parses "<subject>-<chapter>[-...]" ids. Both leading segments
// must be non-empty for the id to count as categorizable.
func splitKey(id string) (subject, chapter string, ok bool) {
	if id == "" {
		return "", "", false
	}
	parts := strings.Split(id, content.SubjectDelimiter)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Subjects returns the subject tokens in sorted order. The fallback subject,
// when present, sorts after all real subjects.
func (c Categorized) Subjects() []string {
	subjects := make([]string, 0, len(c))
	hasFallback := false
	for s := range c {
		if s == FallbackSubject {
			hasFallback = true
			continue
		}
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	if hasFallback {
		subjects = append(subjects, FallbackSubject)
	}
	return subjects
}

// Chapters returns the chapter tokens of a subject in sorted order.
func (c Categorized) Chapters(subject string) []string {
	byChapter, ok := c[subject]
	if !ok {
		return nil
	}
	chapters := make([]string, 0, len(byChapter))
	for ch := range byChapter {
		chapters = append(chapters, ch)
	}
	sort.Strings(chapters)
	return chapters
}
