package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedRunIDGenerator(t *testing.T) {
	gen := NewFixedRunIDGenerator("hw1")
	assert.Equal(t, "hw1-0001", gen.Generate())
	assert.Equal(t, "hw1-0002", gen.Generate())

	gen.Reset()
	assert.Equal(t, "hw1-0001", gen.Generate())

	assert.Equal(t, "test-run-0001", NewFixedRunIDGenerator("").Generate())
}
