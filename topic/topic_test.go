package topic

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.txt")
	require.NoError(t, os.WriteFile(path, []byte("猫\n\n  犬 \n\t\nGo言語\n"), 0644))

	l, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"猫", "犬", "Go言語"}, l.Topics)
}

func TestLoad_Missing(t *testing.T) {
	l, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, Fallback, l.Pick(rand.New(rand.NewSource(1))))
}

func TestPick_MemberOfList(t *testing.T) {
	l, err := Parse(strings.NewReader("a\nb\nc\n"))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		assert.Contains(t, l.Topics, l.Pick(rng))
	}
}

func TestPick_Empty(t *testing.T) {
	l, err := Parse(strings.NewReader("\n \n"))
	require.NoError(t, err)
	assert.Equal(t, Fallback, l.Pick(rand.New(rand.NewSource(1))))

	var nilList *List
	assert.Equal(t, Fallback, nilList.Pick(rand.New(rand.NewSource(1))))
}

func TestPickN(t *testing.T) {
	l := &List{Topics: []string{"a", "b", "c"}}
	rng := rand.New(rand.NewSource(7))

	got := l.PickN(rng, 3)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, got)

	got = l.PickN(rng, 5)
	require.Len(t, got, 5)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, got[:3])
	for _, g := range got {
		assert.Contains(t, l.Topics, g)
	}

	assert.Nil(t, l.PickN(rng, 0))
	assert.Equal(t, []string{Fallback, Fallback}, (&List{}).PickN(rng, 2))
}
