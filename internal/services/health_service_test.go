package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adshub/internal/config"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type clientCount int

func (c clientCount) ClientCount() int { return int(c) }

func TestHealthServiceReadiness(t *testing.T) {
	layout := testLayout(t)
	hs := NewHealthService("1.2.3", "", layout, nil, nil, nil)

	st := hs.ReadinessCheck(context.Background())
	assert.Equal(t, "not_ready", st.Status)
	assert.Equal(t, "not_ready", st.Services["exports"].Status)
	assert.Equal(t, "degraded", st.Services["master"].Status)
	assert.NotContains(t, st.Services, "store")

	writeFile(t, layout.Anchor, "Campaign ID;Campaign\n")
	st = hs.ReadinessCheck(context.Background())
	assert.Equal(t, "ready", st.Status)
	assert.Equal(t, "degraded", st.Services["master"].Status)

	writeMaster(t, layout, testCampaigns())
	st = hs.ReadinessCheck(context.Background())
	assert.Equal(t, "ready", st.Services["master"].Status)
}

func TestHealthServiceStorePing(t *testing.T) {
	layout := testLayout(t)
	writeFile(t, layout.Anchor, "Campaign ID;Campaign\n")

	hs := NewHealthService("1.2.3", "", layout, pingerFunc(func(context.Context) error {
		return errors.New("database is locked")
	}), nil, nil)
	st := hs.ReadinessCheck(context.Background())
	assert.Equal(t, "not_ready", st.Status)
	assert.Equal(t, "database is locked", st.Services["store"].Message)

	hs = NewHealthService("1.2.3", "", layout, pingerFunc(func(context.Context) error { return nil }), nil, nil)
	assert.Equal(t, "ready", hs.ReadinessCheck(context.Background()).Status)
}

func TestHealthServiceLiveness(t *testing.T) {
	hs := NewHealthService("1.2.3", "2026-01-01", testLayout(t), nil, clientCount(3), nil)

	assert.Equal(t, "ok", hs.HealthCheck(context.Background()).Status)

	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	assert.Equal(t, 3, live.Runtime["websocket_clients"])

	v := hs.Version()
	require.Equal(t, config.AppName, v["app"])
	assert.Equal(t, "1.2.3", v["version"])
	assert.Equal(t, "2026-01-01", v["build_time"])
}
