package videos

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the video routes. protected must already carry the
// auth middleware.
func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.GET("/videos/:id/stream", h.StreamVideo)

	videoRoutes := protected.Group("/videos")
	{
		videoRoutes.POST("", h.CreateVideo)
		videoRoutes.GET("", h.ListVideos)
		videoRoutes.GET("/:id", h.GetVideo)
		videoRoutes.GET("/:id/handout", h.GetHandout)
		videoRoutes.GET("/:id/events", h.VideoEvents)
	}
}
