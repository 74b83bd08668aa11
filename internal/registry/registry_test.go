package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryStartsUnfetched(t *testing.T) {
	r := New()
	assert.False(t, r.Fetched())
	_, ok := r.Lookup("GPUProfile")
	assert.False(t, ok)
}

func TestRegistrySetAndLookup(t *testing.T) {
	r := New()
	r.Set("GPUProfile", 1)
	r.Set("GPUTimeline", 2)

	id, ok := r.Lookup("GPUProfile")
	assert.True(t, ok)
	assert.Equal(t, uint8(1), id)

	id, ok = r.Lookup("GPUTimeline")
	assert.True(t, ok)
	assert.Equal(t, uint8(2), id)
}

func TestRegistryLookupMiss(t *testing.T) {
	r := New()
	r.Set("GPUProfile", 1)
	_, ok := r.Lookup("NoSuchEndpoint")
	assert.False(t, ok)
}

func TestRegistryMarkFetchedIsSticky(t *testing.T) {
	r := New()
	r.MarkFetched()
	assert.True(t, r.Fetched())
	r.MarkFetched()
	assert.True(t, r.Fetched())
}
