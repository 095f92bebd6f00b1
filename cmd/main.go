package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"filin/internal/config"
	"filin/internal/cycle"
	"filin/internal/database"
	"filin/internal/delivery"
	"filin/internal/interrupt"
	"filin/internal/logger"
	"filin/internal/screenshot"

	_ "github.com/go-sql-driver/mysql"
)

func main() {
	configPath := flag.String("config", "config.json", "путь к файлу конфигурации")
	createConfig := flag.Bool("create-config", false, "создать пример конфигурации и выйти")
	testWebhook := flag.Bool("test-webhook", false, "отправить тестовое изображение на webhook и выйти")
	flag.Parse()

	if *createConfig {
		if err := config.WriteSampleConfig(*configPath); err != nil {
			log.Fatal("Error writing sample config: ", err)
		}
		fmt.Printf("Пример конфигурации создан: %s. Укажите в нем свой webhook_url.\n", *configPath)
		return
	}

	// init конфигурации
	c, err := config.InitConfig(*configPath)
	if err != nil {
		fmt.Println("Ошибка конфигурации:", err)
		fmt.Println("Запустите с --create-config, чтобы создать пример конфигурации")
		os.Exit(1)
	}

	// Инициализация логгера
	loggerManager, err := logger.NewLoggerManager(c.LogFilePath, c.LogLevel)
	if err != nil {
		log.Fatal("Error initializing logger: ", err)
	}
	defer loggerManager.Close()

	loggerManager.Info("🚀 Запуск ФИЛИН")
	loggerManager.Info("Webhook: %s", truncateURL(c.WebhookURL))
	loggerManager.Info("Интервал: %d-%d секунд", c.MinInterval, c.MaxInterval)
	loggerManager.Info("Директория скриншотов: %s", c.ScreenshotDir)

	// Контекст, отменяемый по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Подключение к базе данных MySQL (опционально, save_to_db = 1)
	var dbManager *database.DatabaseManager
	if c.SaveToDB == 1 {
		db, err := sql.Open("mysql", c.DBDSN)
		if err != nil {
			loggerManager.LogError(err, "Error connecting to database")
			os.Exit(1)
		}
		defer db.Close()

		// Проверяем подключение к базе данных
		if err := db.Ping(); err != nil {
			loggerManager.LogError(err, "Error pinging database")
			os.Exit(1)
		}
		loggerManager.Info("✅ Успешное подключение к базе данных")

		dbManager = database.NewDatabaseManager(db, loggerManager)
		if err := dbManager.EnsureSchema(); err != nil {
			loggerManager.LogError(err, "Error preparing delivery_history table")
			os.Exit(1)
		}
	}

	// Инициализация всех менеджеров
	screenshotManager := screenshot.NewScreenshotManager(c.ScreenshotDir, c.MaxWidth, c.MaxHeight, loggerManager)
	deliveryManager := delivery.NewDeliveryManager(c.WebhookURL, time.Duration(c.HTTPTimeoutSeconds)*time.Second, loggerManager)

	if *testWebhook {
		if err := deliveryManager.TestWebhook(ctx); err != nil {
			fmt.Println("✗ Webhook test failed:", err)
			os.Exit(1)
		}
		fmt.Println("✓ Webhook test successful!")
		return
	}

	// Инициализация менеджера прерываний
	interruptManager := interrupt.NewInterruptManager(loggerManager)
	interruptManager.StartMonitoring()
	loggerManager.Info("🔥 Горячие клавиши (Windows): Shift+Enter — снимок сейчас, Q — остановка")

	cycleManager := cycle.NewCycleManager(c, screenshotManager, deliveryManager, dbManager, interruptManager, loggerManager)

	err = cycleManager.Run(ctx)
	dbManager.Wait()
	if err != nil {
		loggerManager.LogError(err, "Цикл остановлен")
		os.Exit(1)
	}
	loggerManager.Info("✅ Работа завершена")
}

// truncateURL обрезает webhook URL в логах, чтобы не светить токен целиком
func truncateURL(u string) string {
	if len(u) <= 50 {
		return u
	}
	return u[:50] + "..."
}
