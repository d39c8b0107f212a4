// Package codec provides the reversible substitution that protects
// tokenizer-hostile characters before they reach the search index.
//
// The index analyzes text fields with a lowercase keyword analyzer and matches
// them with term and wildcard queries. Punctuation such as '*', '?', '\' or the
// query-DSL separators would either be interpreted by the wildcard matcher or
// mangled by escaping, so every such character is swapped for a private-use
// code point before indexing or querying, and swapped back before results are
// returned. Both the indexing side and the query side must go through the same
// table; a mismatch silently breaks matching.
package codec

import "strings"

// puaBase is the start of the Unicode private-use area the problem characters
// are mapped into. The code points are caseless, so encoded strings survive
// lowercasing unchanged, and none of them is a wildcard metacharacter, so
// "*<encoded>*" is a safe containment pattern.
const puaBase = 0xE000

// problemSet holds every character that interferes with wildcard or tokenized
// matching: the wildcard metacharacters themselves, the query-DSL separators,
// and punctuation that common analyzers strip or escape. Song and artist names
// in the wild use most of these.
const problemSet = `*?\:=|,!"'()[]{}^~<>&/+`

var (
	encodeTable = make(map[rune]rune, len(problemSet))
	decodeTable = make(map[rune]rune, len(problemSet))
)

func init() {
	for i, r := range []rune(problemSet) {
		p := rune(puaBase + i)
		encodeTable[r] = p
		decodeTable[p] = r
	}
}

// Encode substitutes every problem character in s with its private-use
// counterpart. Characters outside the problem set pass through unchanged.
func Encode(s string) string {
	if !strings.ContainsAny(s, problemSet) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if p, ok := encodeTable[r]; ok {
			r = p
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Decode is the inverse of Encode. Decode(Encode(s)) == s for every string
// that does not already contain code points from the private mapping range.
func Decode(s string) string {
	mapped := false
	for _, r := range s {
		if _, ok := decodeTable[r]; ok {
			mapped = true
			break
		}
	}
	if !mapped {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if o, ok := decodeTable[r]; ok {
			r = o
		}
		b.WriteRune(r)
	}
	return b.String()
}
