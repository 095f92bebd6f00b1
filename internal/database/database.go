package database

import (
	"database/sql"
	"fmt"
	"sync"

	"filin/internal/logger"
)

// DeliveryRecord — одна попытка доставки скриншота
type DeliveryRecord struct {
	FileName  string
	SizeBytes int
	Quality   int
	Success   bool
	ErrorText string
}

// DatabaseManager ведет историю доставок в MySQL
type DatabaseManager struct {
	db     *sql.DB
	logger *logger.LoggerManager
	wg     sync.WaitGroup // для ожидания завершения асинхронных операций
}

// NewDatabaseManager создает новый экземпляр DatabaseManager
func NewDatabaseManager(db *sql.DB, loggerManager *logger.LoggerManager) *DatabaseManager {
	return &DatabaseManager{
		db:     db,
		logger: loggerManager,
	}
}

// EnsureSchema создает таблицу истории, если она не существует
func (h *DatabaseManager) EnsureSchema() error {
	if h == nil || h.db == nil {
		return nil
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS delivery_history (
		id INT AUTO_INCREMENT PRIMARY KEY,
		file_name VARCHAR(255) NOT NULL,
		size_bytes INT NOT NULL,
		quality INT NOT NULL,
		success TINYINT(1) NOT NULL,
		error_text TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	if _, err := h.db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("ошибка создания таблицы: %v", err)
	}
	return nil
}

// RecordDeliveryAsync асинхронно сохраняет попытку доставки.
// Менеджер может быть nil (save_to_db = 0) — тогда это no-op.
func (h *DatabaseManager) RecordDeliveryAsync(rec DeliveryRecord) {
	if h == nil || h.db == nil {
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.recordDelivery(rec); err != nil {
			h.logger.LogError(err, "Ошибка сохранения истории доставки")
		}
	}()
}

func (h *DatabaseManager) recordDelivery(rec DeliveryRecord) error {
	insertSQL := `INSERT INTO delivery_history (file_name, size_bytes, quality, success, error_text) VALUES (?, ?, ?, ?, ?)`
	result, err := h.db.Exec(insertSQL, rec.FileName, rec.SizeBytes, rec.Quality, rec.Success, rec.ErrorText)
	if err != nil {
		return fmt.Errorf("ошибка вставки данных: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("ошибка получения ID записи: %v", err)
	}

	h.logger.Debug("История доставки сохранена (ID: %d, файл: %s)", id, rec.FileName)
	return nil
}

// Wait дожидается завершения всех асинхронных вставок (вызывается на выходе)
func (h *DatabaseManager) Wait() {
	if h == nil {
		return
	}
	h.wg.Wait()
}
