package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cortexchat/internal/config"
	"cortexchat/internal/cortex"
	"cortexchat/internal/history"
)

const (
	chatRequestTimeout  = 2 * time.Minute
	defaultHistoryLimit = 100
)

// TranscriptCache drops cached channel transcripts when new timeline rows
// arrive. Satisfied by *redis.Client; nil disables invalidation.
type TranscriptCache interface {
	Del(ctx context.Context, keys ...string) error
}

// Handler wires HTTP routes to the cortex session and its read models.
type Handler struct {
	cfg      *config.Live
	session  *cortex.Session
	timeline *history.Service
	cache    TranscriptCache
}

// NewHandler constructs a Handler instance.
func NewHandler(cfg *config.Live, session *cortex.Session, timeline *history.Service, cache TranscriptCache) *Handler {
	return &Handler{
		cfg:      cfg,
		session:  session,
		timeline: timeline,
		cache:    cache,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/cortex")
	api.Use(OperatorAuth(h.cfg))
	api.POST("/chat", h.chat)
	api.GET("/threads/latest", h.latestThread)
	api.GET("/threads/:thread_id/messages", h.threadMessages)
	api.POST("/channels/:channel_id/timeline", h.appendTimeline)
	api.POST("/reload", h.reloadConfig)
}

type chatRequest struct {
	ThreadID       string `json:"thread_id"`
	Content        string `json:"content"`
	ChannelContext string `json:"channel_context"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		latest, err := h.session.Store().LatestThreadID(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if latest != "" {
			threadID = latest
		} else {
			threadID = uuid.NewString()
		}
	}

	streamCtx, cancel := context.WithTimeout(c.Request.Context(), chatRequestTimeout)
	defer cancel()
	// SSE Request construction
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	sendEvent := func(event string, payload interface{}) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if event != "" {
			if _, err := fmt.Fprintf(c.Writer, "event: %s\n", event); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := sendEvent("ack", gin.H{"thread_id": threadID}); err != nil {
		return
	}

	sink := func(ev cortex.ChatEvent) {
		_ = sendEvent(string(ev.Type), ev)
	}

	text, err := h.session.SendMessage(streamCtx, threadID, content, strings.TrimSpace(req.ChannelContext), sink)
	if err != nil {
		_ = sendEvent(string(cortex.EventError), cortex.ErrorEvent(err.Error()))
		return
	}
	_ = sendEvent(string(cortex.EventDone), cortex.DoneEvent(text))
}

func (h *Handler) latestThread(c *gin.Context) {
	threadID, err := h.session.Store().LatestThreadID(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if threadID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no threads yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"thread_id": threadID})
}

func (h *Handler) threadMessages(c *gin.Context) {
	threadID := c.Param("thread_id")
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}
	messages, err := h.session.Store().LoadHistory(c.Request.Context(), threadID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"thread_id": threadID,
		"messages":  messages,
	})
}

type timelineRequest struct {
	Kind        string `json:"kind"`
	Role        string `json:"role"`
	Content     string `json:"content"`
	SenderName  string `json:"sender_name"`
	Description string `json:"description"`
	Conclusion  string `json:"conclusion"`
	Task        string `json:"task"`
	Result      string `json:"result"`
}

// appendTimeline is the ingestion surface for the channel router and task
// runners: they report activity here so chat turns can see it as context.
func (h *Handler) appendTimeline(c *gin.Context) {
	channelID := c.Param("channel_id")
	var req timelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var record func(context.Context) error
	switch req.Kind {
	case "message":
		if req.Role == "" || req.Content == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "role and content are required for message items"})
			return
		}
		record = func(ctx context.Context) error {
			return h.timeline.RecordMessage(ctx, channelID, req.Role, req.Content, req.SenderName)
		}
	case "branch_run":
		if req.Description == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "description is required for branch_run items"})
			return
		}
		record = func(ctx context.Context) error {
			return h.timeline.RecordBranchRun(ctx, channelID, req.Description, req.Conclusion)
		}
	case "worker_run":
		if req.Task == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "task is required for worker_run items"})
			return
		}
		record = func(ctx context.Context) error {
			return h.timeline.RecordWorkerRun(ctx, channelID, req.Task, req.Result)
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown timeline kind %q", req.Kind)})
		return
	}

	if err := record(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if h.cache != nil {
		if err := h.cache.Del(c.Request.Context(), cortex.TranscriptCacheKey(channelID)); err != nil {
			log.Printf("invalidate transcript cache for channel %s: %v", channelID, err)
		}
	}
	c.Status(http.StatusCreated)
}

func (h *Handler) reloadConfig(c *gin.Context) {
	if err := h.cfg.Reload(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
