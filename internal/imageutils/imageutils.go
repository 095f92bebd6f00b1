package imageutils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	xdraw "golang.org/x/image/draw"
)

// ErrStillOversized возвращается, когда достигнуты минимальное качество и
// минимальный масштаб, а изображение всё ещё больше лимита. Вместе с ошибкой
// возвращается лучший (наименьший) достигнутый результат.
var ErrStillOversized = errors.New("image still exceeds size limit at minimum quality and scale")

// Пороги лестницы сжатия
const (
	minQuality     = 30  // ниже этого качества не опускаемся
	qualityStep    = 10  // шаг понижения качества
	rescaleQuality = 60  // с этого качества начинаем после уменьшения размера
	scaleStep      = 0.7 // множитель уменьшения сторон за один шаг
	minScale       = 0.25
)

// CompressionStats описывает итог сжатия
type CompressionStats struct {
	Quality int
	Width   int
	Height  int
	Size    int
}

func (s CompressionStats) String() string {
	return fmt.Sprintf("%dx%d q=%d %d bytes", s.Width, s.Height, s.Quality, s.Size)
}

// EncodeJPEG кодирует изображение в JPEG с указанным качеством
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("ошибка кодирования JPEG: %v", err)
	}
	return buf.Bytes(), nil
}

// Downscale уменьшает изображение до указанных размеров
func Downscale(img image.Image, width, height int) *image.RGBA {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return dst
}

// FitWithin вписывает изображение в рамку maxWidth x maxHeight с сохранением
// пропорций. Нулевая сторона рамки означает отсутствие ограничения.
func FitWithin(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	scale := 1.0
	if maxWidth > 0 && w > maxWidth {
		scale = float64(maxWidth) / float64(w)
	}
	if maxHeight > 0 && h > maxHeight {
		if s := float64(maxHeight) / float64(h); s < scale {
			scale = s
		}
	}
	if scale >= 1.0 {
		return img
	}

	return Downscale(img, int(math.Round(float64(w)*scale)), int(math.Round(float64(h)*scale)))
}

// CompressToLimit сжимает изображение так, чтобы закодированный JPEG не
// превышал maxBytes: сначала понижается качество, затем уменьшаются размеры.
// Если лимит недостижим, возвращается наименьший достигнутый результат и
// ErrStillOversized — решение о дальнейшей судьбе принимает вызывающий.
func CompressToLimit(img image.Image, maxBytes int, startQuality int) ([]byte, CompressionStats, error) {
	if startQuality < 1 {
		startQuality = 1
	}
	if startQuality > 100 {
		startQuality = 100
	}

	origW := img.Bounds().Dx()
	origH := img.Bounds().Dy()

	var best []byte
	var bestStats CompressionStats

	current := img
	quality := startQuality
	scale := 1.0

	for {
		for q := quality; q >= minQuality; q -= qualityStep {
			data, err := EncodeJPEG(current, q)
			if err != nil {
				return nil, CompressionStats{}, err
			}
			stats := CompressionStats{
				Quality: q,
				Width:   current.Bounds().Dx(),
				Height:  current.Bounds().Dy(),
				Size:    len(data),
			}
			if best == nil || len(data) < len(best) {
				best = data
				bestStats = stats
			}
			if len(data) <= maxBytes {
				return data, stats, nil
			}
		}

		scale *= scaleStep
		if scale < minScale {
			break
		}
		current = Downscale(img,
			int(math.Round(float64(origW)*scale)),
			int(math.Round(float64(origH)*scale)))
		quality = rescaleQuality
	}

	return best, bestStats, ErrStillOversized
}
