package cycle

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"filin/internal/config"
	"filin/internal/database"
	"filin/internal/delivery"
	"filin/internal/imageutils"
	"filin/internal/interrupt"
	"filin/internal/logger"
	"filin/internal/screenshot"
)

const (
	// после стольких неудач подряд программа останавливается
	maxConsecutiveFailures = 5
	// множитель интервала не растет выше этого значения
	maxBackoffMultiplier = 8
)

// ErrTooManyFailures возвращается из Run после maxConsecutiveFailures неудач подряд
var ErrTooManyFailures = errors.New("too many consecutive failures")

// CycleManager выполняет основной цикл: снимок -> сжатие -> отправка,
// с ростом интервала при неудачах
type CycleManager struct {
	cfg         *config.Config
	screenshots *screenshot.ScreenshotManager
	delivery    *delivery.DeliveryManager
	history     *database.DatabaseManager
	interrupts  *interrupt.InterruptManager
	logger      *logger.LoggerManager
	rng         *rand.Rand

	// подменяется в тестах
	intervalFn func(consecutiveFailures int) time.Duration
}

// NewCycleManager создает новый экземпляр CycleManager
func NewCycleManager(
	cfg *config.Config,
	screenshotManager *screenshot.ScreenshotManager,
	deliveryManager *delivery.DeliveryManager,
	databaseManager *database.DatabaseManager,
	interruptManager *interrupt.InterruptManager,
	loggerManager *logger.LoggerManager,
) *CycleManager {
	m := &CycleManager{
		cfg:         cfg,
		screenshots: screenshotManager,
		delivery:    deliveryManager,
		history:     databaseManager,
		interrupts:  interruptManager,
		logger:      loggerManager,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	m.intervalFn = m.NextInterval
	return m
}

// BackoffMultiplier возвращает множитель интервала: min(2^n, 8).
// При нуле неудач множитель равен 1.
func BackoffMultiplier(consecutiveFailures int) int {
	if consecutiveFailures <= 0 {
		return 1
	}
	if consecutiveFailures >= 3 {
		return maxBackoffMultiplier
	}
	return 1 << consecutiveFailures
}

// NextInterval выбирает случайный интервал в настроенных границах
// и умножает его на множитель backoff
func (m *CycleManager) NextInterval(consecutiveFailures int) time.Duration {
	live := m.cfg.Live()
	base := live.MinInterval
	if live.MaxInterval > live.MinInterval {
		base += m.rng.Intn(live.MaxInterval - live.MinInterval + 1)
	}
	return time.Duration(base*BackoffMultiplier(consecutiveFailures)) * time.Second
}

// RunOnce выполняет одну итерацию: снимок, сжатие до лимита, отправка,
// удаление локального файла при успехе (если включено)
func (m *CycleManager) RunOnce(ctx context.Context) error {
	path, img, err := m.screenshots.TakeScreenshot()
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	live := m.cfg.Live()
	maxBytes := live.MaxFileSizeMB * 1024 * 1024

	payload, stats, err := imageutils.CompressToLimit(img, maxBytes, live.ImageQuality)
	if err != nil {
		// Лимит недостижим — такой файл endpoint все равно отклонит, не отправляем
		m.history.RecordDeliveryAsync(database.DeliveryRecord{
			FileName:  filepath.Base(path),
			SizeBytes: stats.Size,
			Quality:   stats.Quality,
			Success:   false,
			ErrorText: err.Error(),
		})
		return fmt.Errorf("compress: %w", err)
	}
	m.logger.Debug("Сжато: %s", stats)

	filename := strings.TrimSuffix(filepath.Base(path), ".png") + ".jpg"
	if err := m.delivery.Send(ctx, filename, payload); err != nil {
		m.history.RecordDeliveryAsync(database.DeliveryRecord{
			FileName:  filename,
			SizeBytes: stats.Size,
			Quality:   stats.Quality,
			Success:   false,
			ErrorText: err.Error(),
		})
		return fmt.Errorf("delivery: %w", err)
	}

	m.history.RecordDeliveryAsync(database.DeliveryRecord{
		FileName:  filename,
		SizeBytes: stats.Size,
		Quality:   stats.Quality,
		Success:   true,
	})

	if live.DeleteAfterSend {
		// Ошибка удаления после успешной отправки не считается неудачей цикла
		m.logger.LogError(m.screenshots.Cleanup(path), "Ошибка удаления скриншота")
	}
	return nil
}

// Run крутит основной цикл до отмены контекста, запроса остановки
// или maxConsecutiveFailures неудач подряд
func (m *CycleManager) Run(ctx context.Context) error {
	consecutiveFailures := 0

	for {
		interval := m.intervalFn(consecutiveFailures)
		if consecutiveFailures > 0 {
			m.logger.Info("⏳ Backoff x%d: следующая попытка через %s",
				BackoffMultiplier(consecutiveFailures), interval)
		} else {
			m.logger.Debug("💤 Следующий снимок через %s", interval)
		}

		if !m.sleep(ctx, interval) {
			m.logger.Info("Остановка цикла")
			return nil
		}

		if err := m.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				// Отмена во время отправки — это остановка, а не неудача
				return nil
			}
			consecutiveFailures++
			m.logger.Error("Итерация не удалась (%d подряд): %v", consecutiveFailures, err)
			if consecutiveFailures >= maxConsecutiveFailures {
				m.logger.Error("🛑 %d неудач подряд, дальнейшие попытки не планируются", consecutiveFailures)
				return ErrTooManyFailures
			}
		} else {
			consecutiveFailures = 0
		}
	}
}

// sleep ждет интервал, оставаясь отзывчивым к отмене контекста и горячим
// клавишам. Возвращает false, если цикл надо завершить.
func (m *CycleManager) sleep(ctx context.Context, d time.Duration) bool {
	var stopChan, triggerChan <-chan bool
	if m.interrupts != nil {
		stopChan = m.interrupts.GetStopChan()
		triggerChan = m.interrupts.GetTriggerChan()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-triggerChan:
		return true
	case <-stopChan:
		return false
	case <-ctx.Done():
		return false
	}
}
