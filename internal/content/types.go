// Package content serves chapter and question documents from a read-only
// content directory. Documents are plain JSON files produced by the authoring
// workflow; this package only ever reads them.
package content

import "strings"

// SubjectDelimiter separates the subject token from the rest of a chapter id,
// e.g. "eti-3" belongs to subject "eti".
const SubjectDelimiter = "-"

// Option is one selectable answer within a question.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question is an immutable multiple-choice question.
type Question struct {
	ID          string   `json:"id"`
	ChapterID   string   `json:"chapterId"`
	Text        string   `json:"text"`
	Options     []Option `json:"options"`
	Explanation string   `json:"explanation,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
}

// Option returns the option with the given id, if present.
func (q Question) Option(optionID string) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == optionID {
			return o, true
		}
	}
	return Option{}, false
}

// Chapter is a named collection of questions under one subject.
type Chapter struct {
	ID                 string     `json:"chapterId"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Questions          []Question `json:"questions"`
	LearningObjectives []string   `json:"learningObjectives,omitempty"`
}

// Subject returns the chapter's subject token (the id prefix before the first
// delimiter), or the whole id when no delimiter is present.
func (c Chapter) Subject() string {
	return SubjectOf(c.ID)
}

// Summary is a manifest entry describing an available chapter.
type Summary struct {
	ID            string `json:"chapterId"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	QuestionCount int    `json:"questionCount,omitempty"`
}

// Subject is a top-level grouping of chapters.
type Subject struct {
	Token string `json:"token" yaml:"token"`
	Name  string `json:"name" yaml:"name"`
}

// SubjectOf extracts the subject token from a chapter id.
func SubjectOf(chapterID string) string {
	if i := strings.Index(chapterID, SubjectDelimiter); i > 0 {
		return chapterID[:i]
	}
	return chapterID
}
