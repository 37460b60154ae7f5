package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mcq-study/backend/internal/content"
	"github.com/mcq-study/backend/internal/event"
	"github.com/mcq-study/backend/internal/progress"
	"github.com/mcq-study/backend/internal/quiz"
)

type answerRequest struct {
	OptionID string `json:"option_id" binding:"required"`
}

type searchRequest struct {
	Query string `json:"query"`
}

// sessionView is the session state the client renders from.
type sessionView struct {
	ChapterID  string            `json:"chapterId"`
	Phase      quiz.Phase        `json:"phase"`
	Index      int               `json:"currentIndex"`
	Total      int               `json:"totalQuestions"`
	Score      int               `json:"score"`
	Percentage int               `json:"percentage"`
	Query      string            `json:"searchQuery,omitempty"`
	Question   *content.Question `json:"question,omitempty"`
	Answer     *quiz.Answer      `json:"answer,omitempty"`
}

func viewOf(sess *quiz.Session) sessionView {
	v := sessionView{
		ChapterID:  sess.ChapterID(),
		Phase:      sess.Phase(),
		Index:      sess.Index(),
		Total:      len(sess.Questions()),
		Score:      sess.Score(),
		Percentage: sess.Percentage(),
		Query:      sess.Query(),
	}
	if q, ok := sess.Current(); ok {
		v.Question = &q
		if a, answered := sess.Answered(q.ID); answered {
			v.Answer = &a
		}
	}
	return v
}

// loadSession restores the caller's session for a chapter, starting a fresh
// one when nothing resumable exists.
func (s *Server) loadSession(c *gin.Context) (*quiz.Session, bool) {
	chapterID := c.Param("chapterID")
	chapter, err := s.content.Chapter(chapterID)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chapter not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "loading chapter failed"})
		}
		return nil, false
	}

	id := callerIdentity(c)
	st, err := s.sessions.Restore(c.Request.Context(), deviceID(c), chapterID, id.UserID)
	switch {
	case err == nil:
		sess, err := quiz.Resume(chapter, st)
		if err == nil {
			return sess, true
		}
		// A cached snapshot the chapter no longer fits starts over.
	case !errors.Is(err, progress.ErrNoSession):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "restoring session failed"})
		return nil, false
	}

	sess, err := quiz.NewSession(chapter, id.UserID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "chapter has no questions"})
		return nil, false
	}
	return sess, true
}

// saveSession persists the snapshot and renders the view.
func (s *Server) saveSession(c *gin.Context, sess *quiz.Session) {
	if err := s.sessions.Save(c.Request.Context(), deviceID(c), sess.Snapshot()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "saving session failed"})
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (s *Server) handleQuizState(c *gin.Context) {
	sess, ok := s.loadSession(c)
	if !ok {
		return
	}
	s.saveSession(c, sess)
}

func (s *Server) handleQuizAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "option_id is required"})
		return
	}
	sess, ok := s.loadSession(c)
	if !ok {
		return
	}
	answer, err := sess.Submit(req.OptionID)
	if err != nil {
		quizError(c, err)
		return
	}
	s.publish(c.Request.Context(), event.New(event.TypeAnswerSubmitted, sess.Owner(), answer.ChapterID, map[string]any{
		"questionId": answer.QuestionID,
		"isCorrect":  answer.Correct,
	}))
	s.saveSession(c, sess)
}

func (s *Server) handleQuizNext(c *gin.Context) {
	sess, ok := s.loadSession(c)
	if !ok {
		return
	}
	if err := sess.Next(); err != nil {
		quizError(c, err)
		return
	}
	if sess.Phase() == quiz.PhaseCompleted {
		s.publish(c.Request.Context(), event.New(event.TypeSessionCompleted, sess.Owner(), sess.ChapterID(), map[string]any{
			"score":      sess.Score(),
			"percentage": sess.Percentage(),
		}))
	}
	s.saveSession(c, sess)
}

func (s *Server) handleQuizPrevious(c *gin.Context) {
	sess, ok := s.loadSession(c)
	if !ok {
		return
	}
	if err := sess.Previous(); err != nil {
		quizError(c, err)
		return
	}
	s.saveSession(c, sess)
}

func (s *Server) handleQuizSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	sess, ok := s.loadSession(c)
	if !ok {
		return
	}
	if err := sess.SetQuery(req.Query); err != nil {
		quizError(c, err)
		return
	}
	s.saveSession(c, sess)
}

// handleQuizReset clears the session and its cached snapshot. The permanent
// answer ledger is untouched.
func (s *Server) handleQuizReset(c *gin.Context) {
	sess, ok := s.loadSession(c)
	if !ok {
		return
	}
	chapterID := sess.ChapterID()
	sess.Reset()
	if err := s.sessions.Purge(c.Request.Context(), deviceID(c), chapterID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "clearing session failed"})
		return
	}
	s.publish(c.Request.Context(), event.New(event.TypeSessionReset, sess.Owner(), chapterID, nil))
	c.JSON(http.StatusOK, viewOf(sess))
}

// quizError maps engine errors onto HTTP statuses: bad input is 400, a
// transition the current state forbids is 409.
func quizError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, quiz.ErrNoSelection), errors.Is(err, quiz.ErrUnknownOption):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, quiz.ErrAlreadyAnswered),
		errors.Is(err, quiz.ErrUnanswered),
		errors.Is(err, quiz.ErrAtStart),
		errors.Is(err, quiz.ErrCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quiz operation failed"})
	}
}
