// Пакет textfold — приведение строк к нижнему регистру без диакритики
// ("María Pérez" → "maria perez").
package textfold

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold раскладывает строку (NFD), удаляет диакритические знаки (Mn),
// собирает обратно (NFC) и переводит в нижний регистр.
func Fold(s string) string {
	// transform.Chain хранит состояние — создаём на каждый вызов.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// KeepAlnum оставляет только символы [a-z0-9].
func KeepAlnum(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
