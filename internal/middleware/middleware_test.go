package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/festival-scheduler-api/internal/service"
)

func TestAuditLogsSuccessfulEdits(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	router := gin.New()
	router.PUT("/competitions/:name/schedule/rooms", Audit(zap.New(core), "rename_rooms"), func(c *gin.Context) {
		c.Header(ScheduleVersionHeader, "3")
		c.Status(http.StatusOK)
	})
	router.POST("/competitions/:name/schedule/moves", Audit(zap.New(core), "move_student"), func(c *gin.Context) {
		c.Status(http.StatusConflict)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/competitions/Spring/schedule/rooms", nil))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/competitions/Spring/schedule/moves", nil))

	entries := logs.FilterMessage("schedule_audit").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "rename_rooms", fields["action"])
	assert.Equal(t, "Spring", fields["competition"])
	assert.Equal(t, "3", fields["version"])
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/competitions/:name/schedule", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/competitions/Spring/schedule", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `path="/competitions/:name/schedule"`)
	assert.Contains(t, body, `path="unmatched"`)
	assert.False(t, strings.Contains(body, "Spring"))
}
