package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mcq-study/backend/internal/content"
	"github.com/mcq-study/backend/internal/event"
	"github.com/mcq-study/backend/internal/saved"
)

func (s *Server) handleSavedList(c *gin.Context) {
	id := callerIdentity(c)
	questions, err := s.saved.List(c.Request.Context(), id.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "loading saved questions failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"questions":   questions,
		"categorized": saved.Categorize(questions),
	})
}

// handleSavedAdd snapshots the question from the content store so the saved
// copy survives later chapter edits.
func (s *Server) handleSavedAdd(c *gin.Context) {
	questionID := c.Param("questionID")
	chapterID := c.Query("chapterId")
	if chapterID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chapterId query parameter is required"})
		return
	}

	chapter, err := s.content.Chapter(chapterID)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chapter not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "loading chapter failed"})
		return
	}
	var question *content.Question
	for i := range chapter.Questions {
		if chapter.Questions[i].ID == questionID {
			question = &chapter.Questions[i]
			break
		}
	}
	if question == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "question not found in chapter"})
		return
	}

	id := callerIdentity(c)
	if err := s.saved.Add(c.Request.Context(), id.UserID, *question); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "saving question failed"})
		return
	}
	s.publish(c.Request.Context(), event.New(event.TypeQuestionSaved, id.UserID, chapterID, map[string]any{
		"questionId": questionID,
	}))
	c.JSON(http.StatusOK, gin.H{"saved": true})
}

func (s *Server) handleSavedRemove(c *gin.Context) {
	questionID := c.Param("questionID")
	id := callerIdentity(c)
	if err := s.saved.Remove(c.Request.Context(), id.UserID, questionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "removing question failed"})
		return
	}
	s.publish(c.Request.Context(), event.New(event.TypeQuestionUnsaved, id.UserID, "", map[string]any{
		"questionId": questionID,
	}))
	c.JSON(http.StatusOK, gin.H{"saved": false})
}
