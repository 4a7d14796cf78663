package valueobject

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSkillSet(t *testing.T) {
	set, err := NewSkillSet([]string{" Plumbing ", "plumbing", "Tiling", ""})
	require.NoError(t, err)
	assert.Equal(t, SkillSet{"Plumbing", "Tiling"}, set)
	assert.True(t, set.Contains("TILING"))
	assert.True(t, set.ContainsAny([]string{"welding", "plumbing"}))
	assert.False(t, set.ContainsAny([]string{"welding"}))
}

func TestNewSkillSet_Invalid(t *testing.T) {
	_, err := NewSkillSet(nil)
	assert.Error(t, err)

	_, err = NewSkillSet([]string{"x"})
	assert.Error(t, err)

	_, err = NewSkillSet([]string{strings.Repeat("a", MaxSkillLength+1)})
	assert.Error(t, err)

	many := make([]string, 0, MaxSkills+1)
	for i := 0; i <= MaxSkills; i++ {
		many = append(many, "skill"+string(rune('a'+i)))
	}
	_, err = NewSkillSet(many)
	assert.Error(t, err)
}
