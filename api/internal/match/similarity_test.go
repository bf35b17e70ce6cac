package match

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimilarityExact(t *testing.T) {
	require.Equal(t, 1.0, Similarity("car", "car"))
	require.Equal(t, 1.0, Similarity("автомобиль", "автомобиль"))
}

func TestSimilarityEmpty(t *testing.T) {
	// обе строки пустые: объединение пусто, схожесть определена как 0
	require.Equal(t, 0.0, Similarity("", ""))
}

func TestSimilaritySubstring(t *testing.T) {
	require.Equal(t, 0.8, Similarity("car", "carr"))
	require.Equal(t, 0.8, Similarity("авто", "автомобиль"))
}

func TestSimilarityJaccard(t *testing.T) {
	// {a,b,c} и {a,b,d}: пересечение 2, объединение 4
	require.InDelta(t, 0.5, Similarity("abc", "abd"), 1e-9)
	// ни одного общего символа
	require.Equal(t, 0.0, Similarity("ab", "cd"))
	// одинаковые множества символов при разных строках
	require.Equal(t, 1.0, Similarity("dog", "doog"))
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"car", "car"},
		{"car", "carr"},
		{"abc", "abd"},
		{"kar", "car"},
		{"собака", "сабака"},
		{"", "dog"},
	}
	for _, p := range pairs {
		require.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), "pair %q/%q", p[0], p[1])
	}
}

func TestSimilarityRange(t *testing.T) {
	pairs := [][2]string{
		{"xyz123", "автомобиль"},
		{"person", "человек"},
		{"теннисная ракетка", "ракетка"},
	}
	for _, p := range pairs {
		s := Similarity(p[0], p[1])
		require.GreaterOrEqual(t, s, 0.0)
		require.LessOrEqual(t, s, 1.0)
	}
}
