package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"

	"github.com/subculture-collective/recaster/internal/models"
	"github.com/subculture-collective/recaster/internal/services"
	"github.com/subculture-collective/recaster/pkg/utils"
)

// InteractionHandler serves the six interaction-ingestion endpoints:
// POST /api/watch, /api/like, /api/comment, /api/share, /api/subscribe
// and /api/unsubscribe.
type InteractionHandler struct {
	service   *services.InteractionService
	sanitizer *bluemonday.Policy
}

// NewInteractionHandler builds an InteractionHandler.
func NewInteractionHandler(service *services.InteractionService) *InteractionHandler {
	return &InteractionHandler{
		service:   service,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func ackOK(c *gin.Context) {
	c.JSON(http.StatusOK, models.AckResponse{Status: "ok"})
}

func (h *InteractionHandler) apply(c *gin.Context, ev models.InteractionEvent) {
	if err := h.service.Apply(c.Request.Context(), ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ackOK(c)
}

// Watch handles POST /api/watch.
func (h *InteractionHandler) Watch(c *gin.Context) {
	var req models.WatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.apply(c, models.InteractionEvent{
		UserID:       req.UserID,
		VideoID:      req.VideoID,
		Kind:         models.EventWatch,
		OccurredAt:   time.Now().UTC(),
		WatchSeconds: req.WatchSeconds,
	})
}

// Like handles POST /api/like, dispatching to EventLike or EventDislike
// per the request's is_like flag.
func (h *InteractionHandler) Like(c *gin.Context) {
	var req models.LikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind := models.EventLike
	if !req.IsLike {
		kind = models.EventDislike
	}
	h.apply(c, models.InteractionEvent{
		UserID:     req.UserID,
		VideoID:    req.VideoID,
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
	})
}

// Comment handles POST /api/comment. Comment text is the one piece of
// free text this service ever accepts, so it goes through two passes
// before being stored or echoed back anywhere: bluemonday strips any
// HTML, then RedactPII masks emails, phone numbers, and anything that
// looks like a pasted credential, since a viewer writing a comment is
// exactly where that content shows up.
func (h *InteractionHandler) Comment(c *gin.Context) {
	var req models.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	text := h.sanitizer.Sanitize(req.Text)
	text = utils.RedactPII(text)
	h.apply(c, models.InteractionEvent{
		UserID:      req.UserID,
		VideoID:     req.VideoID,
		Kind:        models.EventComment,
		OccurredAt:  time.Now().UTC(),
		CommentText: text,
	})
}

// Share handles POST /api/share.
func (h *InteractionHandler) Share(c *gin.Context) {
	var req models.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.apply(c, models.InteractionEvent{
		UserID:     req.UserID,
		VideoID:    req.VideoID,
		Kind:       models.EventShare,
		OccurredAt: time.Now().UTC(),
	})
}

// Subscribe handles POST /api/subscribe.
func (h *InteractionHandler) Subscribe(c *gin.Context) {
	var req models.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.apply(c, models.InteractionEvent{
		UserID:     req.UserID,
		ChannelID:  req.ChannelID,
		Kind:       models.EventSubscribe,
		OccurredAt: time.Now().UTC(),
	})
}

// Unsubscribe handles POST /api/unsubscribe.
func (h *InteractionHandler) Unsubscribe(c *gin.Context) {
	var req models.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.apply(c, models.InteractionEvent{
		UserID:     req.UserID,
		ChannelID:  req.ChannelID,
		Kind:       models.EventUnsubscribe,
		OccurredAt: time.Now().UTC(),
	})
}
