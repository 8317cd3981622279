package videos

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/drewmudry/lessonreel-api/models"
	"github.com/drewmudry/lessonreel-api/tasks"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS config and the bearer token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// VideoEvents streams status changes of one video over a websocket. The
// current status is sent first; the socket closes after a terminal status.
func (h *Handler) VideoEvents(c *gin.Context) {
	video, ok := h.loadOwnedVideo(c, false)
	if !ok {
		return
	}

	// Subscribe before upgrading so no transition between the read and the
	// subscription is lost.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	events, unsubscribe, err := h.Status.SubscribeStatus(ctx, video.ID)
	if err != nil {
		log.Printf("[EVENTS] Subscribe failed for %s: %v", video.ID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live updates unavailable"})
		return
	}
	defer unsubscribe()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[EVENTS] Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Re-read so a transition that happened before the subscription is seen.
	var current models.VideoLesson
	if err := h.DB.First(&current, "id = ?", video.ID).Error; err == nil {
		video = &current
	}
	if !writeEvent(conn, tasks.StatusEvent{VideoID: video.ID, Status: video.Status, Error: video.Error}) || video.IsTerminal() {
		closeNormal(conn)
		return
	}

	// Reads only drain control frames and detect the client going away.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if !writeEvent(conn, event) {
				return
			}
			if event.Status == models.StatusComplete || event.Status == models.StatusFailed {
				closeNormal(conn)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, event tasks.StatusEvent) bool {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(event); err != nil {
		log.Printf("[EVENTS] Write failed for %s: %v", event.VideoID, err)
		return false
	}
	return true
}

func closeNormal(conn *websocket.Conn) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(writeWait))
}
