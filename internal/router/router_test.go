package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/toefl-quiz-backend/internal/config"
	"github.com/stemsi/toefl-quiz-backend/internal/handler"
	"github.com/stemsi/toefl-quiz-backend/internal/model"
	"github.com/stemsi/toefl-quiz-backend/internal/observability"
	"github.com/stemsi/toefl-quiz-backend/internal/service"
)

type notFoundReader struct{}

func (notFoundReader) Get(context.Context, model.Caller, uuid.UUID) (*model.QuizDetail, error) {
	return nil, service.ErrQuizNotFound
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	cfg := &config.Config{
		GinMode:           gin.TestMode,
		JWTSecret:         "router-secret",
		SessionCookieName: "quiz_session",
		AllowedOrigins:    []string{"https://quiz.example.com"},
	}
	quiz := handler.NewQuizHandler(nil, nil, notFoundReader{}, cfg, zerolog.Nop())
	health := handler.NewHealthHandler(nil, zerolog.Nop())
	return SetupRouter(service.NewAuthService(cfg), &Handlers{Quiz: quiz, Health: health}, observability.NewMetrics(), cfg, zerolog.Nop())
}

func TestRoutes(t *testing.T) {
	r := testRouter(t)

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/quizzes/" + uuid.NewString(), http.StatusNotFound},
		{http.MethodGet, "/api/v1/quizzes/bogus", http.StatusBadRequest},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		if w.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, w.Code, tt.want)
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s %s: missing X-Request-ID", tt.method, tt.path)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Errorf("/metrics = %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := testRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/quizzes/generate", nil)
	req.Header.Set("Origin", "https://quiz.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://quiz.example.com" {
		t.Errorf("allow origin = %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("credentials not allowed for configured origins")
	}
}
