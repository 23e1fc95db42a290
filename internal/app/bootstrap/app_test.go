package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/loadbank/internal/config"
	"github.com/taoyao-code/loadbank/internal/simulator"
)

func getJSON(t *testing.T, method, url string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

// 模拟器 + 完整 HTTP 服务端到端
func TestServe_EndToEnd(t *testing.T) {
	board := simulator.NewBoard()
	sim := simulator.NewServer(cfgpkg.SimulatorConfig{Addr: "127.0.0.1:0", MaxConnections: 1, ReadTimeout: 5 * time.Second}, board, nil, nil)
	require.NoError(t, sim.Start())
	defer sim.Shutdown(context.Background())

	cfg, err := cfgpkg.Decode(cfgpkg.New(""))
	require.NoError(t, err)
	cfg.Device.TCP.Addr = sim.Addr().String()
	cfg.Device.ReadTimeout = 2 * time.Second
	cfg.Lock.Backend = "local"
	cfg.API.RateLimit.Enabled = false

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := fmt.Sprintf("http://%s", ln.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, cfg, zap.NewNop(), "test", ln) }()

	code, body := getJSON(t, http.MethodPost, base+"/api/v1/switches?values=101000000000000000")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "101000000000000000", body["switches"])

	code, body = getJSON(t, http.MethodGet, base+"/api/v1/zcs/status")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0", body["zcs"])

	code, body = getJSON(t, http.MethodGet, base+"/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])

	code, _ = getJSON(t, http.MethodGet, base+"/nope")
	assert.Equal(t, http.StatusNotFound, code)

	sw, _, _ := board.Snapshot()
	assert.Equal(t, uint32(0b101), sw)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_BadLockBackend(t *testing.T) {
	cfg, err := cfgpkg.Decode(cfgpkg.New(""))
	require.NoError(t, err)
	cfg.Lock.Backend = "redis" // 未启用 Redis

	err = Serve(context.Background(), cfg, zap.NewNop(), "test", nil)
	assert.Error(t, err)
}
