package etag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tag := New()
		assert.Len(t, tag, Length)
		for _, r := range tag {
			assert.True(t, r >= 'a' && r <= 'z', "unexpected rune %q in %s", r, tag)
		}
		assert.True(t, IsValid(Quote(tag)))
		seen[tag] = struct{}{}
	}
	assert.Len(t, seen, 100)
}

func TestFromSourceRejectsBiasedBytes(t *testing.T) {
	// 234 and above would map onto a to v a second time
	var calls int
	read := func(p []byte) (int, error) {
		calls++
		for i := range p {
			switch {
			case calls == 1 && i%2 == 0:
				p[i] = 234
			case calls == 1:
				p[i] = 255
			default:
				p[i] = 25
			}
		}
		return len(p), nil
	}
	tag := fromSource(read)
	assert.Equal(t, 2, calls)
	assert.Equal(t, strings.Repeat("z", Length), tag)

	assert.Equal(t, 234, unbiased)
	highest := fromSource(func(p []byte) (int, error) {
		for i := range p {
			p[i] = 233
		}
		return len(p), nil
	})
	assert.Equal(t, strings.Repeat("z", Length), highest)
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{`"abc"`, true},
		{`"abcxyzabcxyzabcxyzxy"`, true},
		{`abc`, false},
		{` "abc" `, false},
		{`"abc" `, false},
		{`"a"b"`, false},
		{``, false},
		{`""`, false},
		{`"`, false},
		{`"abc`, false},
		{`abc"`, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValid(tt.in), "IsValid(%q)", tt.in)
	}
}

func TestUnquote(t *testing.T) {
	tag, ok := Unquote(`"abc"`)
	assert.True(t, ok)
	assert.Equal(t, "abc", tag)

	tag, ok = Unquote(`W/"abc"`)
	assert.True(t, ok)
	assert.Equal(t, "abc", tag)

	_, ok = Unquote(`abc`)
	assert.False(t, ok)
}
