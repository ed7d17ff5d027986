package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user00265/ctyresolve/internal/config"
	"github.com/user00265/ctyresolve/internal/logging"
	"github.com/user00265/ctyresolve/internal/lookup"
)

const samplePath = "../../internal/cty/testdata/cty_sample.dat"

// setupEnv points the app at a temp data dir and clears settings that would
// leak in from the developer's environment.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	for _, key := range []string{"CTY_FILE", "CTY_URL", "CTY_FALLBACK_URL", "REDIS_ENABLED", "LOG_FILE", "WEBURL",
		"CALLSIGN_PATTERN", "DOMESTIC_CALLSIGN_PATTERN"} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })
	return &buf
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestHealthcheck(t *testing.T) {
	setupEnv(t)
	out := captureStdout(t)

	status := RunApplication(context.Background(), []string{"healthcheck"})
	assert.Equal(t, 0, status)
	assert.Contains(t, out.String(), "Health check successful")
}

func TestBadConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("CALLSIGN_PATTERN", "([")

	assert.Equal(t, 1, RunApplication(context.Background(), []string{"healthcheck"}))
}

func TestUnknownCommand(t *testing.T) {
	setupEnv(t)
	assert.Equal(t, 2, RunApplication(context.Background(), []string{"frobnicate"}))
}

func TestLogLevelFromEnvFile(t *testing.T) {
	setupEnv(t)
	require.NoError(t, os.Unsetenv("LOG_LEVEL"))

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LOG_LEVEL=debug\n"), 0o644))
	oldEnvFile, oldLevel := config.EnvFile, logging.Level
	config.EnvFile = envFile
	t.Cleanup(func() {
		config.EnvFile = oldEnvFile
		logging.SetLevel(oldLevel)
	})
	logging.SetLevel(logging.LevelNotice)

	assert.Equal(t, 0, RunApplication(context.Background(), []string{"healthcheck"}))
	assert.Equal(t, logging.LevelDebug, logging.Level)
}

func TestResolve_FromFile(t *testing.T) {
	setupEnv(t)
	t.Setenv("CTY_FILE", samplePath)
	out := captureStdout(t)

	status := RunApplication(context.Background(), []string{"resolve", "it9abc", "VE3/K1ABC", "QQ0QQ"})
	require.Equal(t, 0, status)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "IT9ABC\tItaly\tI\t15\t28\tEU\t", lines[0])
	assert.Equal(t, "VE3/K1ABC\tCanada\tVE\t5\t9\tNA\tVE3", lines[1])
	assert.Equal(t, "QQ0QQ\t\t\t0\t0\t\t", lines[2])
}

func TestResolve_Stdin(t *testing.T) {
	setupEnv(t)
	t.Setenv("CTY_FILE", samplePath)
	out := captureStdout(t)

	old := stdin
	stdin = strings.NewReader("K6XYZ\n\n  KG4AB \n")
	defer func() { stdin = old }()

	require.Equal(t, 0, RunApplication(context.Background(), []string{"resolve"}))
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "K6XYZ\tUnited States\tK\t3\t6\tNA\t", lines[0])
	assert.Equal(t, "KG4AB\tGuantanamo Bay\tKG4\t8\t11\tNA\t", lines[1])
}

func TestResolve_DownloadsAndReusesStore(t *testing.T) {
	setupEnv(t)
	sample, err := os.ReadFile(samplePath)
	require.NoError(t, err)

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write(sample)
	}))
	defer srv.Close()
	t.Setenv("CTY_URL", srv.URL)
	t.Setenv("CTY_FALLBACK_URL", srv.URL)

	out := captureStdout(t)
	require.Equal(t, 0, RunApplication(context.Background(), []string{"resolve", "W1AW/MM"}))
	assert.Equal(t, "W1AW/MM\tUnited States\tK\t40\t8\tAF\t\n", out.String())

	// The stored copy is fresh, so the second run stays offline.
	out.Reset()
	require.Equal(t, 0, RunApplication(context.Background(), []string{"resolve", "VA4XYZ"}))
	assert.Equal(t, "VA4XYZ\tCanada\tVE\t4\t3\tNA\t\n", out.String())
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestResolve_NoDataset(t *testing.T) {
	setupEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	t.Setenv("CTY_URL", srv.URL)
	t.Setenv("CTY_FALLBACK_URL", srv.URL)

	// Bound the retry pauses.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.Equal(t, 1, RunApplication(ctx, []string{"resolve", "K1ABC"}))
}

func TestServe(t *testing.T) {
	setupEnv(t)
	t.Setenv("CTY_FILE", samplePath)
	port := freePort(t)
	t.Setenv("WEBPORT", fmt.Sprint(port))
	t.Setenv("WEBURL", "/api")

	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_HOST", mr.Host())
	t.Setenv("REDIS_PORT", mr.Port())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- RunApplication(ctx, nil) }()

	base := fmt.Sprintf("http://127.0.0.1:%d/api", port)
	client := &http.Client{Timeout: 2 * time.Second}
	require.Eventually(t, func() bool {
		resp, err := client.Get(base + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond)

	resp, err := client.Get(base + "/lookup/IT9ABC")
	require.NoError(t, err)
	var info lookup.Info
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	resp.Body.Close()
	assert.Equal(t, "Italy", info.Name)
	assert.Equal(t, "Sicily", info.WAEName)
	assert.Equal(t, "🇮🇹", info.Flag)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasSuffix(keys[0], ":IT9ABC"))

	resp, err = client.Post(base+"/lookup", "application/json", strings.NewReader(`{"callsigns":["K1ABC","VE4XYZ"]}`))
	require.NoError(t, err)
	var batch []lookup.Info
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&batch))
	resp.Body.Close()
	require.Len(t, batch, 2)
	assert.Equal(t, 4, batch[1].CQZone)

	cancel()
	select {
	case status := <-done:
		assert.Equal(t, 0, status)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = os.Stat(filepath.Join(os.Getenv("DATA_DIR"), "cty.db"))
	assert.NoError(t, err)
}
