package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "rideshare-service/docs"
	"rideshare-service/internal/api/handlers"
	"rideshare-service/internal/api/middleware"
	"rideshare-service/internal/ws"

	"github.com/stretchr/testify/assert"
)

type noTokens struct{}

func (noTokens) ParseToken(string) (uint, error) { return 0, errors.New("invalid token") }

type allowAll struct{}

func (allowAll) CheckRateLimit(context.Context, string, int, time.Duration) (bool, error) {
	return true, nil
}

func newTestRouter() *Router {
	r := NewRouter(
		[]string{"http://localhost:3000"},
		Handlers{
			Auth:         handlers.NewAuthHandler(nil),
			User:         handlers.NewUserHandler(nil, nil),
			Channel:      handlers.NewChannelHandler(nil),
			Message:      handlers.NewMessageHandler(nil, nil),
			Notification: handlers.NewNotificationHandler(nil),
			WS:           handlers.NewWSHandler(ws.NewHub(), nil),
		},
		middleware.NewAuthMiddleware(noTokens{}),
		middleware.NewRateLimitMiddleware(allowAll{}),
	)
	r.SetupRoutes()
	return r
}

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter().GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	engine := newTestRouter().GetEngine()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/ws"},
		{http.MethodGet, "/api/v1/users/profile"},
		{http.MethodGet, "/api/v1/users/online"},
		{http.MethodGet, "/api/v1/channels"},
		{http.MethodPost, "/api/v1/channels/support"},
		{http.MethodGet, "/api/v1/channels/1/messages"},
		{http.MethodPost, "/api/v1/messages/attachments"},
		{http.MethodPut, "/api/v1/notifications/read-all"},
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", "Bearer nope")
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestSwaggerServesRegisteredDoc(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter().GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"/channels/{id}/messages"`)
	assert.Contains(t, w.Body.String(), `"/users/online"`)
	assert.Contains(t, w.Body.String(), `"basePath": "/api/v1"`)
}
