package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veertikothari/campustrack/internal/scheduler"
)

// JobRunner runs a registered background job on demand.
type JobRunner interface {
	RunByName(ctx context.Context, name string) error
}

type JobHandler struct {
	jobs JobRunner
}

func NewJobHandler(jobs JobRunner) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// RunJob triggers a job such as event-reminders outside its cron schedule.
func (h *JobHandler) RunJob(c *gin.Context) {
	name := c.Param("name")

	err := h.jobs.RunByName(c.Request.Context(), name)
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	case err != nil:
		log.Printf("❌ [%s] On-demand run failed: %v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Job failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Job completed", "job": name})
}
