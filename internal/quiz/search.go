package quiz

import (
	"golang.org/x/text/language"
	"golang.org/x/text/search"

	"github.com/mcq-study/backend/internal/content"
)

// filter returns the questions matching the query by case- and
// diacritic-insensitive substring search over question and option texts.
func (s *Session) filter(query string) []content.Question {
	if query == "" {
		return s.chapter.Questions
	}

	pattern := search.New(language.Und, search.Loose).CompileString(query)

	var out []content.Question
	for _, q := range s.chapter.Questions {
		if matches(pattern, q) {
			out = append(out, q)
		}
	}
	return out
}

func matches(pattern *search.Pattern, q content.Question) bool {
	if start, _ := pattern.IndexString(q.Text); start >= 0 {
		return true
	}
	for _, opt := range q.Options {
		if start, _ := pattern.IndexString(opt.Text); start >= 0 {
			return true
		}
	}
	return false
}
