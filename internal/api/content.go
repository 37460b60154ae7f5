package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mcq-study/backend/internal/content"
)

func (s *Server) handleChapters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"chapters": s.content.Manifest()})
}

func (s *Server) handleChapter(c *gin.Context) {
	chapter, err := s.content.Chapter(c.Param("chapterID"))
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chapter not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "loading chapter failed"})
		return
	}
	c.JSON(http.StatusOK, chapter)
}

func (s *Server) handleSubjects(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"subjects": s.content.Subjects()})
}

func (s *Server) handleSubjectChapters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"chapters": s.content.BySubject(c.Param("subject"))})
}
