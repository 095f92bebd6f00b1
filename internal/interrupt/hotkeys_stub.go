//go:build !windows

package interrupt

// Горячие клавиши реализованы только для Windows (go-hook использует
// WH_KEYBOARD_LL). На остальных платформах остановка — по SIGINT/SIGTERM.
func (im *InterruptManager) monitorHotkeys() {}
