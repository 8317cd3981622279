package videos

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/drewmudry/lessonreel-api/auth"
	"github.com/drewmudry/lessonreel-api/models"
	"github.com/drewmudry/lessonreel-api/storage"
	"github.com/drewmudry/lessonreel-api/tasks"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	broker *tasks.MemoryBroker
	status *tasks.MemoryStatusBus
	store  *storage.LocalStore
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ts := &testServer{
		db:     db,
		broker: tasks.NewMemoryBroker(),
		status: tasks.NewMemoryStatusBus(),
		store:  storage.NewLocalStore(t.TempDir()),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	protected := engine.Group("")
	protected.Use(auth.AuthMiddleware(testSecret))
	NewHandler(db, ts.broker, ts.status, ts.store).RegisterRoutes(&engine.RouterGroup, protected)
	ts.engine = engine
	return ts
}

func token(t *testing.T, userID uint) string {
	t.Helper()
	tok, err := auth.GenerateJWT(testSecret, userID, "educator@example.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return tok
}

func (ts *testServer) do(t *testing.T, method, path string, userID uint, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) seedCompleteVideo(t *testing.T, id string, owner uint) models.VideoLesson {
	t.Helper()
	video := models.VideoLesson{
		ID:              id,
		OwnerID:         owner,
		Topic:           "Photosynthesis",
		GradeBand:       "6-8",
		Region:          "Kenya",
		SlideCount:      3,
		Title:           "How Plants Make Food",
		Status:          models.StatusComplete,
		VideoURL:        "/videos/" + id + "/stream",
		DurationSeconds: 15,
	}
	for i := 3; i >= 1; i-- {
		slide := models.VideoSlide{SlideNumber: i, Title: "Slide", Narration: "Plants use sunlight."}
		slide.SetKeyPoints([]string{"Sunlight", "Chlorophyll"})
		video.Slides = append(video.Slides, slide)
	}
	if err := ts.db.Create(&video).Error; err != nil {
		t.Fatalf("seed video: %v", err)
	}
	return video
}

func TestCreateVideo(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodPost, "/videos", 7, map[string]interface{}{
		"topic":     "Photosynthesis",
		"gradeBand": "6-8",
		"region":    "Kenya",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp VideoCreatedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.VideoID == "" || resp.Status != models.StatusPending {
		t.Fatalf("unexpected response %+v", resp)
	}

	var video models.VideoLesson
	if err := ts.db.First(&video, "id = ?", resp.VideoID).Error; err != nil {
		t.Fatalf("video not persisted: %v", err)
	}
	if video.OwnerID != 7 || video.SlideCount != 5 {
		t.Errorf("unexpected video %+v", video)
	}
	if ts.broker.Pending(tasks.QueueVideoGeneration) != 1 {
		t.Error("expected one queued generation task")
	}
}

func TestCreateVideoValidation(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing topic", map[string]interface{}{"gradeBand": "6-8", "region": "Kenya"}},
		{"bad grade band", map[string]interface{}{"topic": "Cells", "gradeBand": "K", "region": "Kenya"}},
		{"too many slides", map[string]interface{}{"topic": "Cells", "gradeBand": "6-8", "region": "Kenya", "slideCount": 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/videos", 7, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
	if ts.broker.Pending(tasks.QueueVideoGeneration) != 0 {
		t.Error("invalid requests must not be queued")
	}
}

func TestCreateVideoRequiresAuth(t *testing.T) {
	ts := setupTestServer(t)
	rec := ts.do(t, http.MethodPost, "/videos", 0, map[string]interface{}{"topic": "Cells"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestListAndGetVideo(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedCompleteVideo(t, "mine", 7)
	ts.seedCompleteVideo(t, "theirs", 8)

	rec := ts.do(t, http.MethodGet, "/videos", 7, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list []models.VideoLesson
	json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 1 || list[0].ID != "mine" {
		t.Fatalf("expected only the caller's video, got %+v", list)
	}

	rec = ts.do(t, http.MethodGet, "/videos/mine", 7, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var video models.VideoLesson
	json.Unmarshal(rec.Body.Bytes(), &video)
	if len(video.Slides) != 3 {
		t.Fatalf("expected 3 slides, got %d", len(video.Slides))
	}
	for i, slide := range video.Slides {
		if slide.SlideNumber != i+1 {
			t.Errorf("slides out of order: position %d has number %d", i, slide.SlideNumber)
		}
	}
	if len(video.Slides[0].KeyPointList) != 2 {
		t.Errorf("expected key points in response, got %v", video.Slides[0].KeyPointList)
	}

	if rec := ts.do(t, http.MethodGet, "/videos/theirs", 7, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for another owner's video, got %d", rec.Code)
	}
}

func TestGetHandout(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedCompleteVideo(t, "mine", 7)

	rec := ts.do(t, http.MethodGet, "/videos/mine/handout", 7, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("unexpected content type %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF")
	}

	pending := models.VideoLesson{ID: "pending", OwnerID: 7, Topic: "Cells", GradeBand: "3-5", Region: "Peru", Status: models.StatusPending}
	ts.db.Create(&pending)
	if rec := ts.do(t, http.MethodGet, "/videos/pending/handout", 7, nil); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for an unfinished video, got %d", rec.Code)
	}
}

func TestStreamVideo(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedCompleteVideo(t, "mine", 7)
	if err := os.WriteFile(ts.store.Path("mine"), []byte("fake mp4 bytes"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	rec := ts.do(t, http.MethodGet, "/videos/mine/stream", 0, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "fake mp4 bytes" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "video/mp4" {
		t.Errorf("unexpected content type %q", ct)
	}

	if rec := ts.do(t, http.MethodGet, "/videos/unknown/stream", 0, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestVideoEvents(t *testing.T) {
	ts := setupTestServer(t)
	video := models.VideoLesson{ID: "live", OwnerID: 7, Topic: "Cells", GradeBand: "3-5", Region: "Peru", Status: models.StatusPending}
	ts.db.Create(&video)

	server := httptest.NewServer(ts.engine)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/videos/live/events"
	header := http.Header{"Authorization": []string{"Bearer " + token(t, 7)}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first tasks.StatusEvent
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial status: %v", err)
	}
	if first.Status != models.StatusPending {
		t.Fatalf("expected pending, got %+v", first)
	}

	ts.status.PublishStatus(context.Background(), tasks.StatusEvent{VideoID: "live", Status: models.StatusProcessingAssets})
	ts.status.PublishStatus(context.Background(), tasks.StatusEvent{VideoID: "live", Status: models.StatusComplete})

	var got []string
	for {
		var ev tasks.StatusEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("unexpected read error: %v", err)
			}
			break
		}
		got = append(got, ev.Status)
	}
	if strings.Join(got, ",") != "processing_assets,complete" {
		t.Errorf("unexpected events %v", got)
	}
}

func TestVideoEventsFinishedVideo(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedCompleteVideo(t, "done", 7)

	server := httptest.NewServer(ts.engine)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/videos/done/events?token=" + token(t, 7)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ev tasks.StatusEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Status != models.StatusComplete {
		t.Fatalf("expected complete, got %+v", ev)
	}
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected a normal close, got %v", err)
	}
}
