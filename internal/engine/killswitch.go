package engine

import (
	"sync"
	"time"
)

// KillSwitch хранит глобальное состояние: Normal или EmergencyStopped.
// При создании всегда Normal.
//
// Проверки выполняются под RLock (см. Guard), активация берет Lock. Поэтому после
// возврата из Activate ни одна проверка, увидевшая Normal, уже не выполняется.
type KillSwitch struct {
	mu        sync.RWMutex
	active    bool
	changedAt time.Time
	changedBy string
}

func NewKillSwitch() *KillSwitch {
	return &KillSwitch{}
}

// Activate идемпотентна. Возвращает true, если состояние изменилось.
func (k *KillSwitch) Activate(operatorID string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.active {
		return false
	}
	k.active = true
	k.changedAt = time.Now()
	k.changedBy = operatorID
	return true
}

// Deactivate возвращает в Normal. Авторизацию оператора проверяет вызывающий.
func (k *KillSwitch) Deactivate(operatorID string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.active {
		return false
	}
	k.active = false
	k.changedAt = time.Now()
	k.changedBy = operatorID
	return true
}

func (k *KillSwitch) Active() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.active
}

// LastChange: кто и когда последним переключил состояние.
func (k *KillSwitch) LastChange() (time.Time, string) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.changedAt, k.changedBy
}

// Guard выполняет fn под RLock с наблюдаемым состоянием: check-then-act
// атомарен относительно конкурентной активации. fn не должна вызывать Activate/Deactivate.
func (k *KillSwitch) Guard(fn func(active bool)) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	fn(k.active)
}
