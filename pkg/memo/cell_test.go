package memo

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetComputesOnceOnRepeatedHit(t *testing.T) {
	var calls int32
	c := New(
		func(i int) string { atomic.AddInt32(&calls, 1); return "computed" },
		func(i int) int { return i },
		func(k int) bool { return false },
	)

	assert.Equal(t, "computed", c.Get(1))
	assert.Equal(t, "computed", c.Get(1))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetRecomputesWhenInvalid(t *testing.T) {
	var calls int32
	invalid := true
	c := New(
		func(i int) int32 { return atomic.AddInt32(&calls, 1) },
		func(i int) int { return i },
		func(k int) bool { return invalid },
	)

	first := c.Get(1)
	second := c.Get(1)
	assert.NotEqual(t, first, second, "invalid predicate should force recompute every call")
}

func TestConcurrentMissesObserveOneComputation(t *testing.T) {
	var calls int32
	c := New(
		func(i int) int32 { return atomic.AddInt32(&calls, 1) },
		func(i int) int { return i },
		func(k int) bool { return false },
	)

	var wg sync.WaitGroup
	results := make([]int32, 20)
	for n := 0; n < 20; n++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = c.Get(42)
		}(n)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestForgetForcesRecompute(t *testing.T) {
	var calls int32
	c := New(
		func(i int) int32 { return atomic.AddInt32(&calls, 1) },
		func(i int) int { return i },
		func(k int) bool { return false },
	)

	c.Get(7)
	c.Forget(7)
	c.Get(7)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
