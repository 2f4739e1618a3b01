package pipeline

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitDeliversToSubscriber(t *testing.T) {
	p := New[int]()
	var got []int
	p.Subscribe(func(v int) { got = append(got, v) })

	p.Emit(1)
	p.Emit(2)

	assert.Equal(t, []int{1, 2}, got)
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	p := New[int]()
	var got []int
	p.Subscribe(func(v int) { got = append(got, v) })
	p.Close()
	p.Emit(1)

	assert.Empty(t, got)
}

func TestCloseRunsHooksExactlyOnce(t *testing.T) {
	p := New[int]()
	n := 0
	p.OnClose(func() { n++ })

	p.Close()
	p.Close()
	p.Close()

	assert.Equal(t, 1, n)
}

func TestOnCloseAfterCloseFiresImmediately(t *testing.T) {
	p := New[int]()
	p.Close()

	fired := false
	p.OnClose(func() { fired = true })
	assert.True(t, fired)
}

func TestMapTransformsAndPropagatesClose(t *testing.T) {
	src := New[int]()
	doubled := Map(src, func(v int) int { return v * 2 })

	var got int
	doubled.Subscribe(func(v int) { got = v })
	src.Emit(21)
	assert.Equal(t, 42, got)

	closed := false
	doubled.OnClose(func() { closed = true })
	src.Close()
	assert.True(t, closed)
}

func TestFilterDropsNonMatching(t *testing.T) {
	src := New[int]()
	evens := Filter(src, func(v int) bool { return v%2 == 0 })

	var got []int
	evens.Subscribe(func(v int) { got = append(got, v) })
	src.Emit(1)
	src.Emit(2)
	src.Emit(3)
	src.Emit(4)

	assert.Equal(t, []int{2, 4}, got)
}

func TestNoopIsIndependentHandle(t *testing.T) {
	src := New[int]()
	view := Noop(src)

	closed := false
	view.OnClose(func() { closed = true })

	var got []int
	view.Subscribe(func(v int) { got = append(got, v) })
	src.Emit(7)
	assert.Equal(t, []int{7}, got)

	view.Close()
	assert.True(t, closed)
	assert.False(t, src.Closed())
}

func TestUnionOutputFiresOnZeroOnlyAfterLastHandleCloses(t *testing.T) {
	// Each handle gets its own src, as each profile subscriber does: closing
	// a handle closes its src, so a shared src would close both handles.
	srcA := New[int]()
	srcB := New[int]()
	torn := 0
	var mu sync.Mutex
	ref := NewRefCounted(func() {
		mu.Lock()
		torn++
		mu.Unlock()
	})

	a := UnionOutput(srcA, ref)
	b := UnionOutput(srcB, ref)

	a.Close()
	mu.Lock()
	assert.Equal(t, 0, torn)
	mu.Unlock()

	b.Close()
	mu.Lock()
	assert.Equal(t, 1, torn)
	mu.Unlock()
}

func TestUnionOutputTornDownOnceEvenIfSrcClosesFirst(t *testing.T) {
	src := New[int]()
	torn := 0
	ref := NewRefCounted(func() { torn++ })

	a := UnionOutput(src, ref)
	b := UnionOutput(src, ref)
	_ = a
	_ = b

	src.Close()
	assert.Equal(t, 1, torn)
}
