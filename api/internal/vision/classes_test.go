package vision

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalName(t *testing.T) {
	require.Equal(t, "автомобиль", CanonicalName("car"))
	require.Equal(t, "человек", CanonicalName("person"))
	// неизвестное имя проходит без перевода
	require.Equal(t, "unicorn", CanonicalName("unicorn"))
}

func TestEnglishName(t *testing.T) {
	en, ok := EnglishName("собака")
	require.True(t, ok)
	require.Equal(t, "dog", en)

	_, ok = EnglishName("единорог")
	require.False(t, ok)
}

func TestDisplayName(t *testing.T) {
	require.Equal(t, "dog", DisplayName("собака"))
	require.Equal(t, "единорог", DisplayName("единорог"))
}

func TestVocabularyUnique(t *testing.T) {
	seenEN := map[string]bool{}
	seenRU := map[string]bool{}
	for _, c := range CocoClasses {
		require.NotEmpty(t, c.Name)
		require.NotEmpty(t, c.NameRU)
		require.False(t, seenEN[c.Name], "duplicate english name %q", c.Name)
		require.False(t, seenRU[c.NameRU], "duplicate russian name %q", c.NameRU)
		seenEN[c.Name] = true
		seenRU[c.NameRU] = true
	}
	require.Len(t, CocoClasses, 80)
}
