package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_KeepsDeclaredOrder(t *testing.T) {
	p := New("maxInactiveInterval", "creationTime", "lastAccessedTime")

	assert.Equal(t, []string{"maxInactiveInterval", "creationTime", "lastAccessedTime"}, p.Names())
	assert.Equal(t, p.Names(), p.Fields())
	assert.Equal(t, 3, p.Len())
}

func TestNew_Duplicates(t *testing.T) {
	p := New("a", "b", "a", "c", "b")

	assert.Equal(t, []string{"a", "b", "a", "c", "b"}, p.Names())
	assert.Equal(t, []string{"a", "b", "c"}, p.Fields())
	assert.Equal(t, 3, p.Len())
}

func TestNew_Empty(t *testing.T) {
	p := New()

	assert.Empty(t, p.Names())
	assert.Empty(t, p.Fields())
	assert.Zero(t, p.Len())
	assert.False(t, p.Contains(""))
	assert.Equal(t, "[]", p.String())
}

func TestContains(t *testing.T) {
	p := New("a", "sessionAttr:updatedDate")

	tests := []struct {
		name string
		want bool
	}{
		{"a", true},
		{"sessionAttr:updatedDate", true},
		{"A", false},
		{"updatedDate", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Contains(tt.name))
		})
	}
}

func TestPolicy_IsImmutable(t *testing.T) {
	input := []string{"a", "b"}
	p := New(input...)
	input[0] = "mutated"

	names := p.Names()
	names[1] = "mutated"
	fields := p.Fields()
	fields[0] = "mutated"

	assert.Equal(t, []string{"a", "b"}, p.Names())
	assert.Equal(t, []string{"a", "b"}, p.Fields())
	assert.False(t, p.Contains("mutated"))
}

func TestString(t *testing.T) {
	assert.Equal(t, "[a, b]", New("a", "b", "a").String())
}
