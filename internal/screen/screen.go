package screen

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// CaptureFullScreen захватывает скриншот всего рабочего стола.
// Если мониторов несколько, захватывается объединяющий прямоугольник.
func CaptureFullScreen() (*image.RGBA, error) {
	numDisplays := screenshot.NumActiveDisplays()
	if numDisplays == 0 {
		return nil, fmt.Errorf("no active displays found")
	}

	// Объединяем границы всех активных мониторов
	bounds := screenshot.GetDisplayBounds(0)
	for i := 1; i < numDisplays; i++ {
		bounds = bounds.Union(screenshot.GetDisplayBounds(i))
	}

	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture full screen: %v", err)
	}
	return img, nil
}
