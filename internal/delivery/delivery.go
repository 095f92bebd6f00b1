package delivery

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"filin/internal/imageutils"
	"filin/internal/logger"
)

// DeliveryManager отправляет скриншоты на webhook
type DeliveryManager struct {
	webhookURL string
	client     *http.Client
	logger     *logger.LoggerManager
}

// NewDeliveryManager создает новый экземпляр DeliveryManager
func NewDeliveryManager(webhookURL string, timeout time.Duration, loggerManager *logger.LoggerManager) *DeliveryManager {
	return &DeliveryManager{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: loggerManager,
	}
}

// Send отправляет изображение как multipart/form-data POST с одним полем file.
// Успех — любой 2xx ответ. Повторы здесь не делаются: за повторную отправку
// отвечает внешний цикл со своим backoff.
func (d *DeliveryManager) Send(ctx context.Context, filename string, payload []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("ошибка формирования multipart: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		return fmt.Errorf("ошибка записи payload: %v", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия multipart: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned HTTP %d: %s", resp.StatusCode, bodySnippet(resp.Body))
	}

	d.logger.Info("✅ Отправлено на webhook: %s (%d байт)", filename, len(payload))
	return nil
}

// TestWebhook отправляет маленькое сгенерированное изображение (режим --test-webhook)
func (d *DeliveryManager) TestWebhook(ctx context.Context) error {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	payload, err := imageutils.EncodeJPEG(img, 85)
	if err != nil {
		return err
	}
	return d.Send(ctx, "test_screenshot.jpg", payload)
}

// bodySnippet возвращает начало тела ответа для сообщения об ошибке
func bodySnippet(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(data))
}
