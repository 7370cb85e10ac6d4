package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKillSwitch_Transitions(t *testing.T) {
	k := NewKillSwitch()
	assert.False(t, k.Active())

	assert.True(t, k.Activate("op-1"))
	assert.False(t, k.Activate("op-2"), "second activation is a no-op")
	_, by := k.LastChange()
	assert.Equal(t, "op-1", by)

	assert.True(t, k.Deactivate("op-3"))
	assert.False(t, k.Deactivate("op-3"))
	at, by := k.LastChange()
	assert.Equal(t, "op-3", by)
	assert.False(t, at.IsZero())
}

func TestKillSwitch_GuardSeesConsistentState(t *testing.T) {
	k := NewKillSwitch()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			k.Guard(func(active bool) {
				// Под Guard состояние не может поменяться.
				assert.Equal(t, active, k.active)
			})
		}()
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				k.Activate("a")
			} else {
				k.Deactivate("a")
			}
		}(i)
	}
	wg.Wait()
}
