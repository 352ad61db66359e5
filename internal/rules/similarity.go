package rules

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultMinSharedWords   = 2
	DefaultSmallSetMaxWords = 3
)

// Similar reports whether two descriptions share enough significant words
// to be treated as the same merchant, using the default thresholds.
func Similar(a, b string) bool {
	return SimilarWith(a, b, DefaultMinSharedWords, DefaultSmallSetMaxWords)
}

// SimilarWith compares word sets. Words of two characters or fewer are
// ignored. minShared words must be common to both, relaxed to one when the
// larger set has at most smallSetMax words.
func SimilarWith(a, b string, minShared, smallSetMax int) bool {
	wa, wb := words(a), words(b)
	larger := len(wa)
	if len(wb) > larger {
		larger = len(wb)
	}
	if larger == 0 {
		return false
	}

	shared := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			shared++
		}
	}

	need := minShared
	if larger <= smallSetMax {
		need = 1
	}
	return shared > 0 && shared >= need
}

func words(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 2 {
			set[f] = struct{}{}
		}
	}
	return set
}
