package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomfuertes/murmur/internal/domain"
	"github.com/tomfuertes/murmur/internal/service"
)

type fakeQueryService struct {
	summary   *domain.RoomSummary
	prompts   *domain.RecentPromptsResponse
	err       error
	lastLimit int
}

func (f *fakeQueryService) GetSummary(context.Context) (*domain.RoomSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

func (f *fakeQueryService) GetRecentPrompts(_ context.Context, limit int) (*domain.RecentPromptsResponse, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.prompts, nil
}

func newTestRouter(q service.RoomQueryService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHTTPHandler(q).RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, router *gin.Engine, url string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestGetRoomReturnsSummary(t *testing.T) {
	state := domain.DefaultVibeState()
	q := &fakeQueryService{
		summary: &domain.RoomSummary{
			State:     state,
			Listeners: 4,
			Prompts:   []domain.PromptRecord{{ID: "01A", Text: "slower"}},
		},
	}
	router := newTestRouter(q)

	code, resp := doRequest(t, router, "/api/v1/room")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp["success"].(bool))

	data := resp["data"].(map[string]any)
	assert.Equal(t, float64(4), data["listeners"])
	assert.Equal(t, 72.0, data["state"].(map[string]any)["tempo"])
	assert.Len(t, data["prompts"].([]any), 1)
}

func TestGetRoomFailure(t *testing.T) {
	router := newTestRouter(&fakeQueryService{err: errors.New("room closed")})

	code, resp := doRequest(t, router, "/api/v1/room")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.False(t, resp["success"].(bool))
	assert.Equal(t, "INTERNAL_ERROR", resp["error"].(map[string]any)["code"])
}

func TestGetPromptsLimits(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		expectedCode  int
		expectedLimit int
	}{
		{"default limit", "", http.StatusOK, 20},
		{"explicit limit", "?limit=5", http.StatusOK, 5},
		{"limit capped", "?limit=500", http.StatusOK, 50},
		{"zero limit", "?limit=0", http.StatusBadRequest, 0},
		{"negative limit", "?limit=-3", http.StatusBadRequest, 0},
		{"non-numeric limit", "?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQueryService{prompts: &domain.RecentPromptsResponse{}}
			router := newTestRouter(q)

			code, resp := doRequest(t, router, "/api/v1/room/prompts"+tt.query)
			assert.Equal(t, tt.expectedCode, code)

			if tt.expectedCode == http.StatusOK {
				assert.True(t, resp["success"].(bool))
				assert.Equal(t, tt.expectedLimit, q.lastLimit)
			} else {
				assert.False(t, resp["success"].(bool))
				assert.Equal(t, "BAD_REQUEST", resp["error"].(map[string]any)["code"])
				assert.Equal(t, 0, q.lastLimit, "service not called on bad input")
			}
		})
	}
}

func TestGetPromptsFailure(t *testing.T) {
	router := newTestRouter(&fakeQueryService{err: errors.New("query failed")})

	code, resp := doRequest(t, router, "/api/v1/room/prompts")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.False(t, resp["success"].(bool))
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&fakeQueryService{})

	code, resp := doRequest(t, router, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp["status"])
}
