package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mcq-study/backend/internal/export"
)

func (s *Server) handleProgress(c *gin.Context) {
	id := callerIdentity(c)
	records, err := s.ledger.ByUser(c.Request.Context(), id.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "loading progress failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (s *Server) handleChapterProgress(c *gin.Context) {
	id := callerIdentity(c)
	records, err := s.ledger.ByChapter(c.Request.Context(), id.UserID, c.Param("chapterID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "loading progress failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (s *Server) handleProgressExport(c *gin.Context) {
	id := callerIdentity(c)
	records, err := s.ledger.ByUser(c.Request.Context(), id.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "loading progress failed"})
		return
	}
	f, err := export.Workbook(id, records)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "building export failed"})
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("progress-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		// Headers are already out; nothing left to do but log.
		c.Error(err)
	}
}
