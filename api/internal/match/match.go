// Package match сопоставляет свободный пользовательский ввод с фиксированным
// словарём классов: точное совпадение по русскому или английскому имени,
// затем нечёткий поиск для исправления опечаток.
package match

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"segment-bot/api/internal/vision"
)

// fuzzyThreshold — минимальная схожесть, при которой опечатка считается
// исправимой. Кандидаты со score <= порога отбрасываются.
const fuzzyThreshold = 0.6

var (
	reJunk  = regexp.MustCompile(`[^\p{L}\p{N}_\s,;]`)
	reSplit = regexp.MustCompile(`[,;\s]+`)
)

// Tokenize разбирает пользовательский текст на кандидатов в имена классов.
// Текст приводится к нижнему регистру, посторонние символы заменяются
// пробелами, разделители — пробелы, запятые и точки с запятой. Токены короче
// двух символов отбрасываются. На пустом или мусорном входе возвращает nil.
func Tokenize(text string) []string {
	text = reJunk.ReplaceAllString(strings.ToLower(text), " ")

	var tokens []string
	for _, tok := range reSplit.Split(text, -1) {
		tok = strings.TrimSpace(tok)
		if utf8.RuneCountInString(tok) >= 2 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Correction — исправление опечатки: исходный токен и класс, к которому
// он был приведён нечётким поиском.
type Correction struct {
	Token string
	Class string
}

// Result — итог сопоставления токенов со списком найденных классов.
type Result struct {
	// Resolved — канонические имена в порядке токенов, без дублей.
	Resolved []string
	// Unresolved — токены, для которых не нашлось приемлемого совпадения.
	Unresolved []string
	// Corrections — по одной записи на каждый нечётко сопоставленный токен.
	Corrections []Correction
}

// Resolver сопоставляет токены с каноническими именами классов,
// используя словарь переводов для английских имён.
type Resolver struct {
	englishByRU map[string]string // каноническое имя -> английское (lower)
}

// NewResolver строит Resolver по словарю классов.
func NewResolver(vocab []vision.ClassEntry) *Resolver {
	r := &Resolver{
		englishByRU: make(map[string]string, len(vocab)),
	}
	for _, c := range vocab {
		r.englishByRU[c.NameRU] = strings.ToLower(c.Name)
	}
	return r
}

// Match сопоставляет токены пользователя с классами, найденными на текущем
// изображении. Для каждого токена по очереди: точное совпадение с каноническим
// именем, точное совпадение с английским именем, нечёткий поиск по обоим
// наборам имён. Канонические имена, уже попавшие в Resolved, повторно
// не добавляются; породивший дубль токен молча отбрасывается.
func (r *Resolver) Match(tokens []string, detected []string) Result {
	var res Result
	resolved := make(map[string]struct{}, len(tokens))

	appendResolved := func(canonical string) bool {
		if _, dup := resolved[canonical]; dup {
			return false
		}
		resolved[canonical] = struct{}{}
		res.Resolved = append(res.Resolved, canonical)
		return true
	}

	for _, tok := range tokens {
		// точное совпадение с каноническим именем
		if canonical, ok := exactCanonical(tok, detected); ok {
			appendResolved(canonical)
			continue
		}

		// точное совпадение с английским именем
		if canonical, ok := r.exactEnglish(tok, detected); ok {
			appendResolved(canonical)
			continue
		}

		// нечёткий поиск по каноническим и английским именам
		if canonical, ok := r.fuzzy(tok, detected); ok {
			if appendResolved(canonical) {
				res.Corrections = append(res.Corrections, Correction{Token: tok, Class: canonical})
			}
			continue
		}

		res.Unresolved = append(res.Unresolved, tok)
	}
	return res
}

func exactCanonical(tok string, detected []string) (string, bool) {
	for _, cls := range detected {
		if tok == strings.ToLower(cls) {
			return cls, true
		}
	}
	return "", false
}

func (r *Resolver) exactEnglish(tok string, detected []string) (string, bool) {
	for _, cls := range detected {
		if en, ok := r.englishByRU[cls]; ok && tok == en {
			return cls, true
		}
	}
	return "", false
}

// fuzzy выбирает единственного лучшего кандидата со схожестью строго выше
// порога. Канонические имена проверяются раньше английских, оба набора —
// в порядке detected; при равном счёте побеждает первый встреченный.
func (r *Resolver) fuzzy(tok string, detected []string) (string, bool) {
	var best string
	bestScore := fuzzyThreshold

	for _, cls := range detected {
		if score := Similarity(tok, strings.ToLower(cls)); score > bestScore {
			bestScore = score
			best = cls
		}
	}
	for _, cls := range detected {
		en, ok := r.englishByRU[cls]
		if !ok {
			continue
		}
		if score := Similarity(tok, en); score > bestScore {
			bestScore = score
			best = cls
		}
	}
	return best, best != ""
}
