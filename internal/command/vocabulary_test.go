package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	v := DefaultVocabulary()

	tests := []struct {
		name      string
		utterance string
		want      Category
	}{
		{"empty", "", Unknown},
		{"whitespace only", "  \t\n ", Unknown},
		{"no keyword", "banana", Unknown},
		{"forward", "go forward", Forward},
		{"number word", "one", Forward},
		{"backward", "go back", Backward},
		{"right", "turn right", Right},
		{"left misheard", "lift", Left},
		{"stop", "please stop now", Stop},
		{"speed up", "speed up", SpeedUp},
		{"slow down", "slow down", SlowDown},
		{"extra spacing", "   turn    left   ", Left},
		{"case sensitive", "STOP", Unknown},
		{"substring is not a token", "stopping", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Classify(tt.utterance))
		})
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	v := DefaultVocabulary()

	assert.Equal(t, SpeedUp, v.Classify("speed forward"))
	assert.Equal(t, SpeedUp, v.Classify("forward speed"))
	assert.Equal(t, SlowDown, v.Classify("stop slow"))
	assert.Equal(t, Forward, v.Classify("back forward"))
	assert.Equal(t, Backward, v.Classify("right back"))
	assert.Equal(t, Right, v.Classify("left right"))
	assert.Equal(t, Left, v.Classify("stop left"))
}

func TestClassify_AlwaysInClosedSet(t *testing.T) {
	v := DefaultVocabulary()
	valid := map[Category]bool{}
	for c := range categoryNames {
		valid[c] = true
	}

	inputs := []string{"", "x", "one two three", "\x00", "the quick brown fox", "ünïcödé stop"}
	for _, in := range inputs {
		assert.True(t, valid[v.Classify(in)], "input %q", in)
	}
}

func TestNewVocabulary_Extra(t *testing.T) {
	v, err := NewVocabulary(map[Category][]string{
		Forward: {"ahead"},
		Stop:    {"halt", "stop"},
	})
	require.NoError(t, err)

	assert.Equal(t, Forward, v.Classify("go ahead"))
	assert.Equal(t, Stop, v.Classify("halt"))
	assert.Equal(t, []string{"five", "halt", "hold", "stop", "stopped", "stuff"}, v.KeywordsFor(Stop))
	assert.Contains(t, v.Keywords(), "ahead")
}

func TestNewVocabulary_Rejects(t *testing.T) {
	_, err := NewVocabulary(map[Category][]string{Unknown: {"huh"}})
	assert.Error(t, err)

	_, err = NewVocabulary(map[Category][]string{Forward: {"come here"}})
	assert.Error(t, err)

	_, err = NewVocabulary(map[Category][]string{Forward: {""}})
	assert.Error(t, err)

	_, err = NewVocabulary(map[Category][]string{Category(42): {"x"}})
	assert.Error(t, err)
}

func TestKeywords_SortedUnique(t *testing.T) {
	words := DefaultVocabulary().Keywords()
	require.NotEmpty(t, words)
	for i := 1; i < len(words); i++ {
		assert.Less(t, words[i-1], words[i])
	}
	assert.Nil(t, DefaultVocabulary().KeywordsFor(Unknown))
}

func TestParseCategory(t *testing.T) {
	for c, name := range categoryNames {
		got, err := ParseCategory(name)
		require.NoError(t, err)
		assert.Equal(t, c, got)
		assert.Equal(t, name, c.String())
	}

	_, err := ParseCategory("jump")
	assert.Error(t, err)
	assert.Equal(t, "category(99)", Category(99).String())
}
