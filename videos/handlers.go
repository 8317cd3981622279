package videos

import (
	"errors"
	"log"
	"net/http"
	"path/filepath"

	"github.com/drewmudry/lessonreel-api/models"
	"github.com/drewmudry/lessonreel-api/processing"
	"github.com/drewmudry/lessonreel-api/storage"
	"github.com/drewmudry/lessonreel-api/tasks"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Handler struct {
	DB     *gorm.DB
	Broker tasks.Broker
	Status tasks.StatusBus
	Store  *storage.LocalStore
}

func NewHandler(db *gorm.DB, broker tasks.Broker, status tasks.StatusBus, store *storage.LocalStore) *Handler {
	return &Handler{DB: db, Broker: broker, Status: status, Store: store}
}

type CreateVideoRequest struct {
	Topic      string `json:"topic" binding:"required"`
	GradeBand  string `json:"gradeBand" binding:"required"`
	Region     string `json:"region" binding:"required"`
	SlideCount int    `json:"slideCount"`
}

type VideoCreatedResponse struct {
	VideoID string `json:"videoId"`
	Status  string `json:"status"`
}

func (h *Handler) CreateVideo(c *gin.Context) {
	userID := c.GetUint("user_id")
	var req CreateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.SlideCount == 0 {
		req.SlideCount = processing.DefaultSlideCount
	}

	genReq := processing.GenerationRequest{
		Topic:      req.Topic,
		GradeBand:  req.GradeBand,
		Region:     req.Region,
		SlideCount: req.SlideCount,
	}
	if err := genReq.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	video := models.VideoLesson{
		ID:         uuid.NewString(),
		OwnerID:    userID,
		Topic:      genReq.Topic,
		GradeBand:  genReq.GradeBand,
		Region:     genReq.Region,
		SlideCount: genReq.SlideCount,
		Status:     models.StatusPending,
	}
	if err := h.DB.Create(&video).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create video"})
		return
	}

	payload, err := tasks.Marshal(tasks.VideoGenerationPayload{VideoID: video.ID})
	if err == nil {
		err = h.Broker.Publish(c.Request.Context(), tasks.QueueVideoGeneration, payload)
	}
	if err != nil {
		log.Printf("[VIDEO] Error queueing video %s: %v", video.ID, err)
		h.DB.Model(&video).Updates(map[string]interface{}{"status": models.StatusFailed, "error": models.FailureMessage})
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to queue video"})
		return
	}

	log.Printf("[VIDEO] Queued video %s (%q, %d slides)", video.ID, video.Topic, video.SlideCount)
	c.JSON(http.StatusAccepted, VideoCreatedResponse{VideoID: video.ID, Status: video.Status})
}

func (h *Handler) ListVideos(c *gin.Context) {
	userID := c.GetUint("user_id")
	var videos []models.VideoLesson
	if err := h.DB.Where("owner_id = ?", userID).Order("created_at DESC").Find(&videos).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve videos"})
		return
	}

	c.JSON(http.StatusOK, videos)
}

func (h *Handler) GetVideo(c *gin.Context) {
	video, ok := h.loadOwnedVideo(c, true)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, video)
}

// StreamVideo serves the mp4. The unguessable video id is the capability, so
// the route is public and players can fetch it directly.
func (h *Handler) StreamVideo(c *gin.Context) {
	var video models.VideoLesson
	if err := h.DB.First(&video, "id = ? AND status = ?", c.Param("id"), models.StatusComplete).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}

	f, err := h.Store.Open(video.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Video file no longer available"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open video"})
		}
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open video"})
		return
	}
	c.Header("Content-Type", "video/mp4")
	http.ServeContent(c.Writer, c.Request, filepath.Base(f.Name()), info.ModTime(), f)
}

// loadOwnedVideo writes the error response itself and reports false when the
// video is missing or belongs to someone else.
func (h *Handler) loadOwnedVideo(c *gin.Context, withSlides bool) (*models.VideoLesson, bool) {
	userID := c.GetUint("user_id")

	query := h.DB
	if withSlides {
		query = query.Preload("Slides", func(db *gorm.DB) *gorm.DB {
			return db.Order("slide_number ASC")
		})
	}

	var video models.VideoLesson
	if err := query.First(&video, "id = ? AND owner_id = ?", c.Param("id"), userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return nil, false
	}
	return &video, true
}
