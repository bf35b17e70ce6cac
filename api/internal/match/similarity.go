package match

import "strings"

// Similarity возвращает коэффициент схожести двух строк в диапазоне [0.0, 1.0].
// Вход должен быть приведён к нижнему регистру вызывающей стороной.
//
// Шкала:
//   - 1.0 — строки равны;
//   - 0.8 — одна строка содержится в другой;
//   - иначе — индекс Жаккара по множествам символов.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.8
	}

	setA := runeSet(a)
	setB := runeSet(b)

	union := len(setB)
	common := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			common++
		} else {
			union++
		}
	}
	if union == 0 {
		// обе строки пустые
		return 0.0
	}
	return float64(common) / float64(union)
}

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}
