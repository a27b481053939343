package sandbox

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCappedBuffer(t *testing.T) {
	t.Run("UnderLimit", func(t *testing.T) {
		b := newCappedBuffer(10)
		n, err := b.Write([]byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "hello", b.String())
		assert.False(t, b.Truncated())
	})

	t.Run("CrossesLimit", func(t *testing.T) {
		b := newCappedBuffer(8)
		_, _ = b.Write([]byte("hello"))
		n, err := b.Write([]byte(" world"))
		require.NoError(t, err)
		assert.Equal(t, 6, n, "discarded bytes are still reported as consumed")
		assert.Equal(t, "hello wo", b.String())
		assert.True(t, b.Truncated())

		_, _ = b.Write([]byte("more"))
		assert.Equal(t, "hello wo", b.String())
	})

	t.Run("CutsOnRuneBoundary", func(t *testing.T) {
		// "héllo" is h(1) é(2) llo(3); a cut at 2 bytes would split é
		b := newCappedBuffer(2)
		_, _ = b.Write([]byte("héllo"))
		assert.Equal(t, "h", b.String())
		assert.True(t, utf8.ValidString(b.String()))
		assert.True(t, b.Truncated())
	})

	t.Run("RuneSplitAcrossWrites", func(t *testing.T) {
		b := newCappedBuffer(4)
		_, _ = b.Write([]byte("ab\xe2\x82"))
		_, _ = b.Write([]byte("\xac and more"))
		assert.Equal(t, "ab", b.String())
	})

	t.Run("InvalidBytesKept", func(t *testing.T) {
		b := newCappedBuffer(3)
		_, _ = b.Write([]byte{'a', 0xff, 'b', 'c'})
		assert.Equal(t, []byte{'a', 0xff, 'b'}, []byte(b.String()))
	})

	t.Run("Unbounded", func(t *testing.T) {
		b := newCappedBuffer(0)
		_, _ = b.Write(make([]byte, 4096))
		assert.Len(t, b.String(), 4096)
		assert.False(t, b.Truncated())
	})

	t.Run("FrozenDropsWrites", func(t *testing.T) {
		b := newCappedBuffer(100)
		_, _ = b.Write([]byte("before"))
		b.freeze()
		n, err := b.Write([]byte("after"))
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "before", b.String())
	})
}

func TestNormalizeInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Empty", "", ""},
		{"OnlyBlank", "  \n\n\t\n", ""},
		{"SingleLineNoNewline", "Alice", "Alice\n"},
		{"TwoLines", "Alice\n25\n", "Alice\n25\n"},
		{"TrimsAndDropsBlank", "  Alice  \n\n 25\n\n", "Alice\n25\n"},
		{"CRLF", "Alice\r\n25\r\n", "Alice\n25\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeInput(tt.input))
		})
	}
}

func TestWithTruncationMarker(t *testing.T) {
	assert.Equal(t, MessageTruncated+"\n", withTruncationMarker(""))
	assert.Equal(t, "boom\n"+MessageTruncated+"\n", withTruncationMarker("boom"))
	assert.Equal(t, "boom\n"+MessageTruncated+"\n", withTruncationMarker("boom\n"))
}
