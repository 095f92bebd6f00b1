package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogLevel представляет уровень логирования
type LogLevel string

const (
	DEBUG LogLevel = "DEBUG"
	INFO  LogLevel = "INFO"
	ERROR LogLevel = "ERROR"
)

// maxLogFileSize — размер файла логов, после которого он ротируется
const maxLogFileSize = 5 * 1024 * 1024

// приоритеты уровней для фильтрации
var levelPriority = map[LogLevel]int{
	DEBUG: 0,
	INFO:  1,
	ERROR: 2,
}

// LoggerManager управляет логированием в файл
type LoggerManager struct {
	file     *os.File
	filePath string
	logger   *log.Logger
	minLevel LogLevel
}

// NewLoggerManager создает новый экземпляр LoggerManager
func NewLoggerManager(logFilePath string, minLevel string) (*LoggerManager, error) {
	// Создаем директорию для логов, если её нет
	logDir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории для логов: %v", err)
	}

	// Открываем файл для записи (создаем, если не существует)
	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла логов: %v", err)
	}

	level := LogLevel(strings.ToUpper(minLevel))
	if _, ok := levelPriority[level]; !ok {
		level = INFO
	}

	// Создаем логгер с префиксом и флагами
	logger := log.New(file, "", log.LstdFlags)

	return &LoggerManager{
		file:     file,
		filePath: logFilePath,
		logger:   logger,
		minLevel: level,
	}, nil
}

// Close закрывает файл логов
func (l *LoggerManager) Close() error {
	return l.file.Close()
}

// rotateIfNeeded ротирует файл логов, если он превысил maxLogFileSize
func (l *LoggerManager) rotateIfNeeded() {
	info, err := l.file.Stat()
	if err != nil || info.Size() < maxLogFileSize {
		return
	}

	l.file.Close()
	os.Remove(l.filePath + ".old")
	os.Rename(l.filePath, l.filePath+".old")

	file, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		// Не получилось переоткрыть файл — пишем только в консоль
		l.logger.SetOutput(os.Stderr)
		return
	}
	l.file = file
	l.logger.SetOutput(file)
}

// logWithLevel записывает сообщение с указанным уровнем
func (l *LoggerManager) logWithLevel(level LogLevel, format string, args ...interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	l.rotateIfNeeded()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	logEntry := fmt.Sprintf("[%s] %s: %s", timestamp, level, message)

	// Записываем в файл
	l.logger.Println(logEntry)

	// Также выводим в консоль для удобства отладки
	fmt.Println(logEntry)
}

// Debug записывает отладочное сообщение
func (l *LoggerManager) Debug(format string, args ...interface{}) {
	l.logWithLevel(DEBUG, format, args...)
}

// Info записывает информационное сообщение
func (l *LoggerManager) Info(format string, args ...interface{}) {
	l.logWithLevel(INFO, format, args...)
}

// Error записывает сообщение об ошибке
func (l *LoggerManager) Error(format string, args ...interface{}) {
	l.logWithLevel(ERROR, format, args...)
}

// LogError записывает ошибку с дополнительной информацией
func (l *LoggerManager) LogError(err error, context string) {
	if err != nil {
		l.Error("%s: %v", context, err)
	}
}
