package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

const testSecret = "test-secret"

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint("user_id"), "email": c.GetString("email")})
	})
	return r
}

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT(testSecret, 42, "educator@example.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	claims, err := ValidateJWT(testSecret, token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "educator@example.com" {
		t.Errorf("unexpected claims %+v", claims)
	}

	if _, err := ValidateJWT("other-secret", token); err == nil {
		t.Error("expected a token signed with another secret to be rejected")
	}

	expired, _ := GenerateJWT(testSecret, 42, "educator@example.com", -time.Minute)
	if _, err := ValidateJWT(testSecret, expired); err == nil {
		t.Error("expected an expired token to be rejected")
	}
}

func TestAuthMiddleware(t *testing.T) {
	router := setupTestRouter()
	valid, _ := GenerateJWT(testSecret, 7, "a@b.c", time.Hour)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid token", "Bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestAuthMiddlewareWebsocketQueryToken(t *testing.T) {
	router := setupTestRouter()
	valid, _ := GenerateJWT(testSecret, 7, "a@b.c", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/me?token="+valid, nil)
	req.Header.Set("Upgrade", "websocket")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected websocket query token to be accepted, got %d", w.Code)
	}

	plain := httptest.NewRequest(http.MethodGet, "/me?token="+valid, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, plain)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("query token should only work for websocket upgrades, got %d", w.Code)
	}
}
