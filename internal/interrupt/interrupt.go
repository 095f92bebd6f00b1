package interrupt

import (
	"filin/internal/logger"
)

// InterruptManager управляет горячими клавишами оператора:
// Q — остановить программу, Shift+Enter — сделать снимок немедленно.
// Горячие клавиши работают только на Windows, на остальных платформах
// каналы просто никогда не срабатывают.
type InterruptManager struct {
	stopChan    chan bool
	triggerChan chan bool
	logger      *logger.LoggerManager
}

// NewInterruptManager создает новый менеджер прерываний
func NewInterruptManager(loggerManager *logger.LoggerManager) *InterruptManager {
	return &InterruptManager{
		stopChan:    make(chan bool, 1),
		triggerChan: make(chan bool, 1),
		logger:      loggerManager,
	}
}

// StartMonitoring запускает мониторинг горячих клавиш
func (im *InterruptManager) StartMonitoring() {
	go im.monitorHotkeys()
}

// GetStopChan возвращает канал запроса остановки
func (im *InterruptManager) GetStopChan() <-chan bool {
	return im.stopChan
}

// GetTriggerChan возвращает канал немедленного снимка
func (im *InterruptManager) GetTriggerChan() <-chan bool {
	return im.triggerChan
}

// requestStop и requestTrigger не блокируются, если сигнал еще не обработан
func (im *InterruptManager) requestStop() {
	select {
	case im.stopChan <- true:
	default:
	}
}

func (im *InterruptManager) requestTrigger() {
	select {
	case im.triggerChan <- true:
	default:
	}
}
