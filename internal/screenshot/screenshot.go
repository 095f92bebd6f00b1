package screenshot

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"filin/internal/imageutils"
	"filin/internal/logger"
	"filin/internal/screen"

	"github.com/google/uuid"
)

// ScreenshotManager захватывает экран и сохраняет снимки в рабочую директорию
type ScreenshotManager struct {
	dir       string
	maxWidth  int
	maxHeight int
	logger    *logger.LoggerManager

	// подменяется в тестах
	captureFn func() (*image.RGBA, error)
}

// NewScreenshotManager создает новый экземпляр ScreenshotManager
func NewScreenshotManager(dir string, maxWidth, maxHeight int, loggerManager *logger.LoggerManager) *ScreenshotManager {
	return &ScreenshotManager{
		dir:       dir,
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
		logger:    loggerManager,
		captureFn: screen.CaptureFullScreen,
	}
}

// SetCaptureFunc подменяет функцию захвата экрана (используется в тестах)
func (m *ScreenshotManager) SetCaptureFunc(fn func() (*image.RGBA, error)) {
	m.captureFn = fn
}

// TakeScreenshot захватывает экран, при необходимости ужимает разрешение до
// max_width x max_height и сохраняет PNG в директорию скриншотов.
// Возвращает путь к файлу и само изображение для дальнейшего сжатия.
func (m *ScreenshotManager) TakeScreenshot() (string, image.Image, error) {
	raw, err := m.captureFn()
	if err != nil {
		return "", nil, fmt.Errorf("failed to take screenshot: %v", err)
	}

	img := imageutils.FitWithin(raw, m.maxWidth, m.maxHeight)
	if img != image.Image(raw) {
		m.logger.Debug("Разрешение ограничено: %dx%d -> %dx%d",
			raw.Bounds().Dx(), raw.Bounds().Dy(), img.Bounds().Dx(), img.Bounds().Dy())
	}

	// Создаем директорию, если её нет
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return "", nil, fmt.Errorf("ошибка создания директории %s: %v", m.dir, err)
	}

	filename := fmt.Sprintf("screenshot_%d_%s.png", time.Now().Unix(), uuid.NewString()[:8])
	path := filepath.Join(m.dir, filename)

	file, err := os.Create(path)
	if err != nil {
		return "", nil, fmt.Errorf("ошибка создания файла %s: %v", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		os.Remove(path)
		return "", nil, fmt.Errorf("ошибка сохранения изображения: %v", err)
	}

	m.logger.Debug("📸 Скриншот сохранен: %s", path)
	return path, img, nil
}

// Cleanup удаляет локальный файл скриншота (режим delete_after_send)
func (m *ScreenshotManager) Cleanup(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("ошибка удаления файла %s: %v", path, err)
	}
	m.logger.Info("🗑️ Файл удален: %s", filepath.Base(path))
	return nil
}
