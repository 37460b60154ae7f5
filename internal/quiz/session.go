// Package quiz implements the session engine that drives a question-by-question
// chapter attempt: answer recording, navigation, search filtering, scoring.
// Sessions are pure in-memory state machines; persistence lives in the
// progress package.
package quiz

import (
	"errors"
	"math"
	"time"

	"github.com/mcq-study/backend/internal/content"
)

var (
	// ErrEmptyChapter signals a chapter with no questions; callers are expected
	// to navigate away rather than start a session.
	ErrEmptyChapter = errors.New("chapter has no questions")
	// ErrNoSelection signals a submission without a chosen option.
	ErrNoSelection = errors.New("no option selected")
	// ErrUnknownOption signals an option id that does not belong to the current question.
	ErrUnknownOption = errors.New("unknown option")
	// ErrAlreadyAnswered signals a resubmission for a question that already has
	// a recorded answer in this session.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrUnanswered signals forward navigation from an unanswered question.
	ErrUnanswered = errors.New("current question not answered")
	// ErrAtStart signals backward navigation from the first question.
	ErrAtStart = errors.New("already at first question")
	// ErrCompleted signals a transition that is invalid once the session completed.
	ErrCompleted = errors.New("session completed")
)

// Phase is the lifecycle state of a session.
type Phase string

const (
	PhaseInProgress Phase = "in_progress"
	PhaseCompleted  Phase = "completed"
)

// Answer is one recorded response to one question.
type Answer struct {
	QuestionID string    `json:"questionId"`
	ChapterID  string    `json:"chapterId"`
	OptionID   string    `json:"selectedOption"`
	Correct    bool      `json:"isCorrect"`
	AnsweredAt time.Time `json:"answeredAt"`
}

// State is the serializable snapshot of a session, the unit the progress
// synchronizer caches and restores.
type State struct {
	ChapterID string            `json:"chapterId"`
	OwnerID   string            `json:"ownerUserId,omitempty"`
	Phase     Phase             `json:"phase"`
	Index     int               `json:"currentIndex"`
	Score     int               `json:"score"`
	Answers   map[string]Answer `json:"answers"`
	Query     string            `json:"searchQuery,omitempty"`
	UpdatedAt time.Time         `json:"lastUpdated"`
}

// Session is one in-flight chapter attempt.
type Session struct {
	chapter *content.Chapter
	ownerID string
	phase   Phase
	index   int
	score   int
	answers map[string]Answer
	query   string
	active  []content.Question
	now     func() time.Time
}

// SessionOption configures a session.
type SessionOption func(*Session)

// WithClock overrides the session's time source.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession starts a fresh attempt at the first question of the chapter.
// The owner id may be empty for anonymous sessions.
func NewSession(chapter *content.Chapter, ownerID string, opts ...SessionOption) (*Session, error) {
	if chapter == nil || len(chapter.Questions) == 0 {
		return nil, ErrEmptyChapter
	}

	s := &Session{
		chapter: chapter,
		ownerID: ownerID,
		phase:   PhaseInProgress,
		answers: make(map[string]Answer),
		active:  chapter.Questions,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Resume rebuilds a session from a snapshot. The score is recomputed from the
// recorded answers and the index is clamped to the active sequence, so a
// snapshot from an older revision of the chapter resumes cleanly.
func Resume(chapter *content.Chapter, st State, opts ...SessionOption) (*Session, error) {
	s, err := NewSession(chapter, st.OwnerID, opts...)
	if err != nil {
		return nil, err
	}

	if st.Answers != nil {
		for id, ans := range st.Answers {
			s.answers[id] = ans
			if ans.Correct {
				s.score++
			}
		}
	}
	if st.Phase == PhaseCompleted {
		s.phase = PhaseCompleted
	}
	s.query = st.Query
	s.active = s.filter(st.Query)
	s.index = clamp(st.Index, 0, len(s.active)-1)
	return s, nil
}

// Snapshot captures the full session state for persistence.
func (s *Session) Snapshot() State {
	answers := make(map[string]Answer, len(s.answers))
	for id, ans := range s.answers {
		answers[id] = ans
	}
	return State{
		ChapterID: s.chapter.ID,
		OwnerID:   s.ownerID,
		Phase:     s.phase,
		Index:     s.index,
		Score:     s.score,
		Answers:   answers,
		Query:     s.query,
		UpdatedAt: s.now(),
	}
}

// Current returns the question at the session's position. The second return
// is false once the session completed or when a search matched nothing.
func (s *Session) Current() (content.Question, bool) {
	if s.phase != PhaseInProgress || len(s.active) == 0 {
		return content.Question{}, false
	}
	return s.active[s.index], true
}

// Submit records the answer for the current question. A question answered
// once in this session stays answered; revisiting it does not reopen it.
func (s *Session) Submit(optionID string) (Answer, error) {
	q, ok := s.Current()
	if !ok {
		return Answer{}, ErrCompleted
	}
	if optionID == "" {
		return Answer{}, ErrNoSelection
	}
	if _, answered := s.answers[q.ID]; answered {
		return Answer{}, ErrAlreadyAnswered
	}
	opt, ok := q.Option(optionID)
	if !ok {
		return Answer{}, ErrUnknownOption
	}

	ans := Answer{
		QuestionID: q.ID,
		ChapterID:  q.ChapterID,
		OptionID:   opt.ID,
		Correct:    opt.IsCorrect,
		AnsweredAt: s.now(),
	}
	s.answers[q.ID] = ans
	if ans.Correct {
		s.score++
	}
	return ans, nil
}

// Next advances to the following question, or completes the session from the
// last one. The current question must have a recorded answer first.
func (s *Session) Next() error {
	q, ok := s.Current()
	if !ok {
		return ErrCompleted
	}
	if _, answered := s.answers[q.ID]; !answered {
		return ErrUnanswered
	}
	if s.index+1 < len(s.active) {
		s.index++
		return nil
	}
	s.phase = PhaseCompleted
	return nil
}

// Previous steps back one question. Recorded answers are kept.
func (s *Session) Previous() error {
	if s.phase != PhaseInProgress {
		return ErrCompleted
	}
	if s.index == 0 {
		return ErrAtStart
	}
	s.index--
	return nil
}

// SetQuery filters the question sequence by a case-insensitive substring
// match over question and option texts. The position resets to the start of
// the filtered sequence; an empty query restores the full chapter.
func (s *Session) SetQuery(query string) error {
	if s.phase != PhaseInProgress {
		return ErrCompleted
	}
	s.query = query
	s.active = s.filter(query)
	s.index = 0
	return nil
}

// Reset discards all answers and returns to the first question of the full
// chapter. Purging persisted state is the caller's responsibility.
func (s *Session) Reset() {
	s.phase = PhaseInProgress
	s.index = 0
	s.score = 0
	s.query = ""
	s.answers = make(map[string]Answer)
	s.active = s.chapter.Questions
}

// Answered returns the recorded answer for a question id, if any.
func (s *Session) Answered(questionID string) (Answer, bool) {
	ans, ok := s.answers[questionID]
	return ans, ok
}

// Answers returns a copy of all recorded answers.
func (s *Session) Answers() []Answer {
	out := make([]Answer, 0, len(s.answers))
	for _, ans := range s.answers {
		out = append(out, ans)
	}
	return out
}

// Phase reports whether the session is in progress or completed.
func (s *Session) Phase() Phase { return s.phase }

// Index is the 0-based position within the active sequence.
func (s *Session) Index() int { return s.index }

// Score is the count of correct answers recorded in this session.
func (s *Session) Score() int { return s.score }

// Query returns the active search query, empty when unfiltered.
func (s *Session) Query() string { return s.query }

// Owner returns the user id the session belongs to, empty for anonymous.
func (s *Session) Owner() string { return s.ownerID }

// ChapterID returns the id of the chapter being attempted.
func (s *Session) ChapterID() string { return s.chapter.ID }

// Questions returns the active (possibly filtered) question sequence.
func (s *Session) Questions() []content.Question {
	out := make([]content.Question, len(s.active))
	copy(out, s.active)
	return out
}

// Percentage is the final score as a rounded percentage of the active sequence.
func (s *Session) Percentage() int {
	if len(s.active) == 0 {
		return 0
	}
	return int(math.Round(float64(s.score) / float64(len(s.active)) * 100))
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
