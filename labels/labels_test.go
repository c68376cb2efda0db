package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetName(t *testing.T) {
	s := NewSet([]string{"cls0", "cls1", "cls2"})

	name, err := s.Name(1)
	require.NoError(t, err)
	assert.Equal(t, "cls1", name)

	_, err = s.Name(3)
	assert.Error(t, err)
	_, err = s.Name(-1)
	assert.Error(t, err)
}

func TestSetNameFallback(t *testing.T) {
	var s *Set

	name, err := s.Name(7)
	require.NoError(t, err)
	assert.Equal(t, "7", name)

	name, err = NewSet(nil).Name(0)
	require.NoError(t, err)
	assert.Equal(t, "0", name)
}

func TestSetIndex(t *testing.T) {
	s := NewSet([]string{"person", "car"})

	idx, err := s.Index("car")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = s.Index("bicycle")
	assert.Error(t, err)
}
