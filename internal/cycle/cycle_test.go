package cycle

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"filin/internal/config"
	"filin/internal/delivery"
	"filin/internal/logger"
	"filin/internal/screenshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, overrides map[string]interface{}) *config.Config {
	t.Helper()
	dir := t.TempDir()

	settings := map[string]interface{}{
		"webhook_url":       "http://127.0.0.1:9/webhook",
		"min_interval":      10,
		"max_interval":      10,
		"delete_after_send": true,
		"max_file_size_mb":  8,
		"image_quality":     85,
		"log_level":         "ERROR",
		"log_file_path":     filepath.Join(dir, "test.log"),
		"screenshot_dir":    filepath.Join(dir, "screenshots"),
	}
	for k, v := range overrides {
		settings[k] = v
	}

	data, err := json.Marshal(settings)
	require.NoError(t, err)
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, data, 0644))

	c, err := config.InitConfig(path)
	require.NoError(t, err)
	return c
}

func testLogger(t *testing.T) *logger.LoggerManager {
	t.Helper()
	lm, err := logger.NewLoggerManager(filepath.Join(t.TempDir(), "test.log"), "ERROR")
	require.NoError(t, err)
	t.Cleanup(func() { lm.Close() })
	return lm
}

// testManager собирает CycleManager с фейковым захватом экрана
// и мгновенными интервалами
func testManager(t *testing.T, c *config.Config, webhookURL string) *CycleManager {
	t.Helper()
	lm := testLogger(t)

	sm := screenshot.NewScreenshotManager(c.ScreenshotDir, 0, 0, lm)
	sm.SetCaptureFunc(func() (*image.RGBA, error) {
		return image.NewRGBA(image.Rect(0, 0, 64, 48)), nil
	})

	dm := delivery.NewDeliveryManager(webhookURL, 5*time.Second, lm)

	m := NewCycleManager(c, sm, dm, nil, nil, lm)
	m.intervalFn = func(int) time.Duration { return time.Millisecond }
	return m
}

func TestBackoffMultiplier(t *testing.T) {
	cases := map[int]int{
		0:  1,
		1:  2,
		2:  4,
		3:  8,
		4:  8,
		5:  8,
		10: 8,
	}
	for failures, want := range cases {
		assert.Equal(t, want, BackoffMultiplier(failures), "failures=%d", failures)
	}

	// Монотонность: множитель не убывает с ростом числа неудач
	for f := 1; f <= 10; f++ {
		assert.GreaterOrEqual(t, BackoffMultiplier(f), BackoffMultiplier(f-1))
	}
}

func TestNextInterval_BackoffScaling(t *testing.T) {
	c := testConfig(t, nil) // min = max = 10
	m := testManager(t, c, "http://127.0.0.1:9")

	assert.Equal(t, 10*time.Second, m.NextInterval(0))
	assert.Equal(t, 20*time.Second, m.NextInterval(1))
	assert.Equal(t, 40*time.Second, m.NextInterval(2))
	assert.Equal(t, 80*time.Second, m.NextInterval(3))
	// Кап на 8x
	assert.Equal(t, 80*time.Second, m.NextInterval(4))
	assert.Equal(t, 80*time.Second, m.NextInterval(7))
}

func TestNextInterval_WithinConfiguredRange(t *testing.T) {
	c := testConfig(t, map[string]interface{}{"min_interval": 10, "max_interval": 20})
	m := testManager(t, c, "http://127.0.0.1:9")

	for i := 0; i < 100; i++ {
		d := m.NextInterval(0)
		assert.GreaterOrEqual(t, d, 10*time.Second)
		assert.LessOrEqual(t, d, 20*time.Second)
	}
}

// Сценарий: webhook трижды отвечает 500, потом 200.
// Счетчик неудач должен пройти 1,2,3 и сброситься в 0.
func TestRun_FailuresThenSuccessResetsCounter(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := testConfig(t, map[string]interface{}{"webhook_url": server.URL})
	m := testManager(t, c, server.URL)

	var mu sync.Mutex
	var seen []int
	m.intervalFn = func(failures int) time.Duration {
		mu.Lock()
		seen = append(seen, failures)
		mu.Unlock()
		return time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 5
	}, 5*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 0}, seen[:5])

	multipliers := make([]int, 5)
	for i, f := range seen[:5] {
		multipliers[i] = BackoffMultiplier(f)
	}
	assert.Equal(t, []int{1, 2, 4, 8, 1}, multipliers)
}

// После 5 неудач подряд цикл останавливается, шестой попытки не бывает
func TestRun_TerminatesAfterFiveConsecutiveFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := testConfig(t, map[string]interface{}{"webhook_url": server.URL})
	m := testManager(t, c, server.URL)

	err := m.Run(context.Background())

	require.ErrorIs(t, err, ErrTooManyFailures)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestRun_CaptureFailureCountsTowardLimit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := testConfig(t, map[string]interface{}{"webhook_url": server.URL})
	m := testManager(t, c, server.URL)
	m.screenshots.SetCaptureFunc(func() (*image.RGBA, error) {
		return nil, assert.AnError
	})

	err := m.Run(context.Background())

	require.ErrorIs(t, err, ErrTooManyFailures)
	// До отправки дело ни разу не дошло
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestRunOnce_DeleteAfterSendOnSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := testConfig(t, map[string]interface{}{"webhook_url": server.URL})
	m := testManager(t, c, server.URL)

	require.NoError(t, m.RunOnce(context.Background()))

	entries, err := os.ReadDir(c.ScreenshotDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "файл должен быть удален после успешной отправки")
}

func TestRunOnce_FileRetainedOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := testConfig(t, map[string]interface{}{"webhook_url": server.URL})
	m := testManager(t, c, server.URL)

	require.Error(t, m.RunOnce(context.Background()))

	entries, err := os.ReadDir(c.ScreenshotDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "файл должен остаться при неудачной отправке")
}

func TestRun_CancelDuringSleepReturnsPromptly(t *testing.T) {
	c := testConfig(t, nil)
	m := testManager(t, c, "http://127.0.0.1:9")
	m.intervalFn = func(int) time.Duration { return time.Minute }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	start := time.Now()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.Less(t, time.Since(start), 2*time.Second)
	case <-time.After(5 * time.Second):
		t.Fatal("цикл не завершился после отмены контекста")
	}
}
