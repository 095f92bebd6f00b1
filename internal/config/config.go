package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Tunables — параметры, которые можно менять на лету через config.json.
// Остальные поля Config фиксируются на старте.
type Tunables struct {
	MinInterval     int  `mapstructure:"min_interval" json:"min_interval"`
	MaxInterval     int  `mapstructure:"max_interval" json:"max_interval"`
	DeleteAfterSend bool `mapstructure:"delete_after_send" json:"delete_after_send"`
	MaxFileSizeMB   int  `mapstructure:"max_file_size_mb" json:"max_file_size_mb"`
	ImageQuality    int  `mapstructure:"image_quality" json:"image_quality"`
}

// Основная структура конфигурации
type Config struct {
	WebhookURL         string `mapstructure:"webhook_url"`
	LogLevel           string `mapstructure:"log_level"`
	LogFilePath        string `mapstructure:"log_file_path"`
	ScreenshotDir      string `mapstructure:"screenshot_dir"`
	MaxWidth           int    `mapstructure:"max_width"`
	MaxHeight          int    `mapstructure:"max_height"`
	SaveToDB           int    `mapstructure:"save_to_db"`
	DBDSN              string `mapstructure:"db_dsn"`
	HTTPTimeoutSeconds int    `mapstructure:"http_timeout_seconds"`

	Tunables `mapstructure:",squash"`

	mu   sync.RWMutex
	live Tunables
}

// переменные окружения, которые перекрывают значения из файла
var envBindings = map[string]string{
	"webhook_url":       "WEBHOOK_URL",
	"min_interval":      "MIN_INTERVAL",
	"max_interval":      "MAX_INTERVAL",
	"delete_after_send": "DELETE_AFTER_SEND",
	"max_file_size_mb":  "MAX_FILE_SIZE_MB",
	"image_quality":     "IMAGE_QUALITY",
	"log_level":         "LOG_LEVEL",
	"screenshot_dir":    "SCREENSHOT_DIR",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("webhook_url", "")
	v.SetDefault("min_interval", 30)
	v.SetDefault("max_interval", 60)
	v.SetDefault("delete_after_send", true)
	v.SetDefault("max_file_size_mb", 8) // лимит Discord на размер файла
	v.SetDefault("image_quality", 85)
	v.SetDefault("log_level", "INFO")
	v.SetDefault("log_file_path", "logs/filin.log")
	v.SetDefault("screenshot_dir", "screenshots")
	v.SetDefault("max_width", 0)
	v.SetDefault("max_height", 0)
	v.SetDefault("save_to_db", 0)
	v.SetDefault("db_dsn", "")
	v.SetDefault("http_timeout_seconds", 30)
}

// InitConfig читает config.json через viper, накладывает переменные
// окружения и валидирует результат
func InitConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("ошибка привязки переменной окружения %s: %v", env, err)
		}
	}

	// Чтение конфигурации: отсутствие файла допустимо,
	// если webhook_url задан через окружение
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %v", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %v", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	config.live = config.Tunables
	config.watch(v)

	return &config, nil
}

// watch подписывается на изменения config.json; на лету применяются только Tunables,
// невалидные правки игнорируются до следующего изменения
func (c *Config) watch(v *viper.Viper) {
	v.OnConfigChange(func(_ fsnotify.Event) {
		var next Config
		if err := v.Unmarshal(&next); err != nil {
			return
		}
		_ = c.applyReload(next.Tunables)
	})
	v.WatchConfig()
}

// validate проверяет значения конфигурации (границы — как в оригинальном инструменте)
func (c *Config) validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("webhook_url должен быть задан")
	}
	u, err := url.Parse(c.WebhookURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("некорректный webhook_url: %q", c.WebhookURL)
	}
	if err := c.Tunables.validate(); err != nil {
		return err
	}
	if c.MaxWidth < 0 || c.MaxHeight < 0 {
		return fmt.Errorf("max_width/max_height не могут быть отрицательными")
	}
	if c.SaveToDB == 1 && c.DBDSN == "" {
		return fmt.Errorf("db_dsn должен быть задан при save_to_db = 1")
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("http_timeout_seconds должен быть положительным")
	}

	// Создаем директорию для скриншотов, если её нет
	if err := os.MkdirAll(c.ScreenshotDir, 0755); err != nil {
		return fmt.Errorf("ошибка создания директории для скриншотов: %v", err)
	}
	return nil
}

func (t Tunables) validate() error {
	if t.MinInterval < 10 {
		return fmt.Errorf("min_interval должен быть не меньше 10 секунд")
	}
	if t.MaxInterval < t.MinInterval {
		return fmt.Errorf("max_interval должен быть не меньше min_interval")
	}
	if t.MaxFileSizeMB < 1 || t.MaxFileSizeMB > 8 {
		return fmt.Errorf("max_file_size_mb должен быть в пределах 1-8 (лимит Discord)")
	}
	if t.ImageQuality < 1 || t.ImageQuality > 100 {
		return fmt.Errorf("image_quality должен быть в пределах 1-100")
	}
	return nil
}

// Live возвращает актуальный снимок изменяемых параметров
func (c *Config) Live() Tunables {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.live
}

// applyReload применяет перечитанные Tunables, если они валидны
func (c *Config) applyReload(t Tunables) error {
	if err := t.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.live = t
	c.mu.Unlock()
	return nil
}

// WriteSampleConfig создает пример config.json (режим --create-config)
func WriteSampleConfig(path string) error {
	sample := map[string]interface{}{
		"webhook_url":          "YOUR_WEBHOOK_URL_HERE",
		"min_interval":         30,
		"max_interval":         60,
		"delete_after_send":    true,
		"max_file_size_mb":     8,
		"image_quality":        85,
		"log_level":            "INFO",
		"log_file_path":        "logs/filin.log",
		"screenshot_dir":       "screenshots",
		"max_width":            0,
		"max_height":           0,
		"save_to_db":           0,
		"db_dsn":               "",
		"http_timeout_seconds": 30,
	}
	data, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
