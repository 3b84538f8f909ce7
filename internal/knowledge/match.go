package knowledge

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	tituloWeight   = 2.0
	keywordWeight  = 1.5
	fullMatchBonus = 1.2
	maxScore       = 100.0
)

// Portuguese connective words carry no signal and are dropped before scoring.
var stopwords = map[string]struct{}{
	"como": {}, "que": {}, "qual": {}, "quais": {}, "onde": {}, "quando": {},
	"por": {}, "para": {}, "com": {}, "sem": {}, "uma": {}, "uns": {}, "umas": {},
	"dos": {}, "das": {}, "nos": {}, "nas": {}, "pelo": {}, "pela": {},
	"ser": {}, "ter": {}, "fazer": {}, "posso": {}, "pode": {}, "devo": {},
	"deve": {}, "sobre": {}, "entre": {}, "mais": {}, "menos": {}, "muito": {},
	"essa": {}, "esse": {}, "esta": {}, "este": {}, "isso": {}, "isto": {},
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalize lowercases, strips diacritics and turns punctuation into spaces.
func normalize(s string) string {
	clean, _, err := transform.String(deaccent, strings.ToLower(s))
	if err != nil {
		clean = strings.ToLower(s)
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// queryWords extracts the scoreable words of a free-text message: normalized,
// longer than two runes and not a stopword.
func queryWords(message string) []string {
	var words []string
	for _, w := range strings.Fields(normalize(message)) {
		if len([]rune(w)) <= 2 {
			continue
		}
		if _, skip := stopwords[w]; skip {
			continue
		}
		words = append(words, w)
	}
	return words
}

// scoreItem rates how well an item answers the given query words, from 0 to
// 100. Title hits weigh more than keyword hits, and a query whose every word
// matched something gets a capped 20% boost.
func scoreItem(item Item, words []string) float64 {
	if len(words) == 0 {
		return 0
	}

	titulo := normalize(item.Titulo)
	keywords := make([]string, 0, len(item.Keywords))
	for _, k := range item.Keywords {
		keywords = append(keywords, strings.TrimSpace(normalize(k)))
	}

	var total float64
	matched := 0
	for _, w := range words {
		hit := false
		if strings.Contains(titulo, w) {
			total += tituloWeight
			hit = true
		}
		for _, k := range keywords {
			if k == "" {
				continue
			}
			if strings.Contains(k, w) || strings.Contains(w, k) {
				total += keywordWeight
				hit = true
				break
			}
		}
		if hit {
			matched++
		}
	}

	score := math.Min(maxScore, total/(float64(len(words))*tituloWeight)*maxScore)
	if matched == len(words) {
		score = math.Min(maxScore, score*fullMatchBonus)
	}
	return math.Round(score*100) / 100
}
