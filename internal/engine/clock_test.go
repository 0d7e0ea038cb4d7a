package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_NewClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current(), "new clock should start at tick 0")
}

func TestClock_NewClockAt(t *testing.T) {
	c := NewClockAt(100)
	assert.Equal(t, int64(100), c.Current())
	assert.Equal(t, int64(101), c.Next())
}

func TestClock_Next_Incrementing(t *testing.T) {
	c := NewClock()

	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(3), c.Next())
	assert.Equal(t, int64(3), c.Current())
}

func TestClock_ConcurrentReaders(t *testing.T) {
	c := NewClock()
	const readers = 16

	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prev := int64(0)
			for j := 0; j < 100; j++ {
				cur := c.Current()
				assert.GreaterOrEqual(t, cur, prev, "ticks never go backwards")
				prev = cur
			}
		}()
	}
	for i := 0; i < 1000; i++ {
		c.Next()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), c.Current())
}
