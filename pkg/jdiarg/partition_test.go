package jdiarg

import (
	"testing"

	"github.com/jdibridge/bridge/pkg/correlation"
	"github.com/stretchr/testify/assert"
)

func TestPartitionOrdersEachBucket(t *testing.T) {
	id := correlation.New()
	in := []any{
		ClassInclude{Pattern: "com.x.*"},
		MethodNameFilter{Name: "bar"},
		CountFilter{N: 5},
		"unknown-extension",
		UniqueIDProperty{ID: id},
		UserEventProperty{Key: "arg0", Extract: true},
	}

	reqArgs, evtArgs, unknown := Partition(in)

	assert.Equal(t, []RequestArg{
		ClassInclude{Pattern: "com.x.*"},
		CountFilter{N: 5},
		UniqueIDProperty{ID: id},
	}, reqArgs)
	assert.Equal(t, []EventArg{
		MethodNameFilter{Name: "bar"},
		UserEventProperty{Key: "arg0", Extract: true},
	}, evtArgs)
	assert.Equal(t, []any{"unknown-extension"}, unknown)
}

func TestFindUniqueIDPropertyPresent(t *testing.T) {
	id := correlation.New()
	reqArgs := []RequestArg{ClassInclude{Pattern: "*"}, UniqueIDProperty{ID: id}}

	got, ok := FindUniqueIDProperty(reqArgs)

	assert.True(t, ok)
	assert.Equal(t, id, got.ID)
}

func TestFindUniqueIDPropertyAbsent(t *testing.T) {
	_, ok := FindUniqueIDProperty([]RequestArg{ClassInclude{Pattern: "*"}})
	assert.False(t, ok)
}

func TestStripUniqueIDPropertyIsOrderPreserving(t *testing.T) {
	reqArgs := []RequestArg{
		ClassInclude{Pattern: "*"},
		UniqueIDProperty{ID: correlation.New()},
		CountFilter{N: 1},
	}

	stripped := StripUniqueIDProperty(reqArgs)

	assert.Equal(t, []RequestArg{
		ClassInclude{Pattern: "*"},
		CountFilter{N: 1},
	}, stripped)
}

func TestUniqueIDPropertyFilterRoundTrips(t *testing.T) {
	id := correlation.New()
	prop := UniqueIDProperty{ID: id}

	assert.Equal(t, UniqueIDFilter{ID: id}, prop.Filter())
}
