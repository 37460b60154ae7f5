package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mcq-study/backend/internal/content"
)

const maxChapterDocSize = 1 << 20

// handleValidateChapter checks a chapter document against the authoring
// rules without storing it. The body is the raw chapter JSON.
func (s *Server) handleValidateChapter(c *gin.Context) {
	doc, err := io.ReadAll(io.LimitReader(c.Request.Body, maxChapterDocSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading request body failed"})
		return
	}
	if len(doc) > maxChapterDocSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "chapter document too large"})
		return
	}

	issues, err := content.Validate(doc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chapter document is not valid JSON"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":  len(issues) == 0,
		"issues": issues,
	})
}
