package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveness(t *testing.T) {
	h := NewHealthChecker(nil)

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, StatusHealthy, body["status"])
}

func TestCheckNoDependencies(t *testing.T) {
	h := NewHealthChecker(nil)

	status := h.Check(context.Background())
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Empty(t, status.Dependencies)
}

func TestCheckRegisteredChecks(t *testing.T) {
	h := NewHealthChecker(nil)
	h.RegisterCheck("dynamodb", func(ctx context.Context) error { return nil })
	h.RegisterCheck("cognito", func(ctx context.Context) error {
		return fmt.Errorf("pool unreachable")
	})

	status := h.Check(context.Background())

	// One healthy dependency keeps the service degraded, not unhealthy.
	assert.Equal(t, StatusDegraded, status.Status)
	assert.Equal(t, StatusHealthy, status.Dependencies["dynamodb"].Status)
	assert.Equal(t, StatusUnhealthy, status.Dependencies["cognito"].Status)
	assert.Contains(t, status.Dependencies["cognito"].Message, "unreachable")
}

func TestCheckAllDown(t *testing.T) {
	h := NewHealthChecker(nil)
	h.RegisterCheck("dynamodb", func(ctx context.Context) error {
		return fmt.Errorf("down")
	})

	status := h.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
}

func TestCheckRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	h := NewHealthChecker(client)

	status := h.Check(context.Background())
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, StatusHealthy, status.Dependencies["redis"].Status)
}

func TestReadiness(t *testing.T) {
	h := NewHealthChecker(nil)
	h.RegisterCheck("dynamodb", func(ctx context.Context) error {
		return fmt.Errorf("down")
	})

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest("GET", "/ready", nil))

	// All dependencies down means not ready.
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, StatusUnhealthy, status.Status)
}
