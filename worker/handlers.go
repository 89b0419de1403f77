package worker

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/mihmosh/whisper-flash/errors"
	"github.com/mihmosh/whisper-flash/server"
)

// healthResponse is the /health payload. Status is "loading" until the
// model is ready, then "ok". Dispatchers use queue_size to spread load.
type healthResponse struct {
	Status    string `json:"status"`
	QueueSize int    `json:"queue_size"`
	Device    string `json:"device"`
}

// enqueueResponse is the /enqueue_chunk success payload.
type enqueueResponse struct {
	Status  string `json:"status"`
	ChunkID string `json:"chunk_id"`
}

// RegisterRoutes mounts the worker API on the given Gin engine.
func (s *Service) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.handleHealth)
	r.POST("/enqueue_chunk", s.handleEnqueueChunk)
	r.GET("/get_result/:id", s.handleGetResult)
}

// handleHealth always returns 200; orchestrators treat "loading" as alive
// but not yet dispatchable.
func (s *Service) handleHealth(c *gin.Context) {
	status := "ok"
	if !s.engine.Ready() {
		status = "loading"
	}
	c.JSON(http.StatusOK, healthResponse{
		Status:    status,
		QueueSize: s.QueueSize(),
		Device:    s.engine.Device(),
	})
}

func (s *Service) handleEnqueueChunk(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		server.RespondWithError(c, apperrors.MissingField("file"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		server.RespondWithError(c, apperrors.InvalidInput("file", err.Error()))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		server.RespondWithError(c, apperrors.InvalidInput("file", err.Error()))
		return
	}

	task, err := s.Enqueue(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, enqueueResponse{
		Status:  "accepted",
		ChunkID: task.ID,
	})
}

func (s *Service) handleGetResult(c *gin.Context) {
	id := c.Param("id")
	result, ok := s.Result(id)
	if !ok {
		server.RespondWithError(c, apperrors.NotFound("task", id))
		return
	}

	// The "text" field is present for completed tasks even when the
	// transcript is empty (silent audio).
	switch result.Status {
	case StatusCompleted:
		c.JSON(http.StatusOK, gin.H{"status": string(StatusCompleted), "text": result.Text})
	case StatusError:
		c.JSON(http.StatusOK, gin.H{"status": string(StatusError), "message": result.Message})
	default:
		c.JSON(http.StatusOK, gin.H{"status": string(StatusQueued)})
	}
}
