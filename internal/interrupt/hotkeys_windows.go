//go:build windows

package interrupt

import (
	"github.com/moutend/go-hook/pkg/keyboard"
	"github.com/moutend/go-hook/pkg/types"
)

// monitorHotkeys мониторит горячие клавиши через низкоуровневый keyboard hook
func (im *InterruptManager) monitorHotkeys() {
	eventChan := make(chan types.KeyboardEvent, 100)
	if err := keyboard.Install(nil, eventChan); err != nil {
		im.logger.LogError(err, "Ошибка установки keyboard hook, горячие клавиши недоступны")
		return
	}
	defer keyboard.Uninstall()

	shiftPressed := false

	for event := range eventChan {
		if event.Message == types.WM_KEYDOWN && (event.VKCode == types.VK_LSHIFT || event.VKCode == types.VK_RSHIFT) {
			shiftPressed = true
		}
		if event.Message == types.WM_KEYUP && (event.VKCode == types.VK_LSHIFT || event.VKCode == types.VK_RSHIFT) {
			shiftPressed = false
		}
		if event.Message == types.WM_KEYDOWN && event.VKCode == types.VK_RETURN && shiftPressed {
			im.logger.Info("🔥 Shift+Enter: снимок по запросу оператора")
			im.requestTrigger()
		}
		if event.Message == types.WM_KEYDOWN && event.VKCode == types.VK_Q {
			im.logger.Info("⏹️ Q: запрошена остановка")
			im.requestStop()
		}
	}
}
