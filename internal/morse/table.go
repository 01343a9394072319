// Package morse holds the character-to-representation lookup table used by
// the generator's enqueue layer and the receiver's poll-character path.
//
// A representation is a non-empty string over '.' and '-'. ' ' is never
// looked up here: callers treat it as an inter-word-space themselves.
package morse

import "unicode"

// table maps an uppercase character to its dot/dash representation.
// Grounded on the teacher's MorseTree (internal/cw/morse.go), reshaped from a
// binary-tree index into a flat map, extended with punctuation/prosigns also
// present in dhwells-morse/morse.go's morse_code table.
var table = map[rune]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".",
	'F': "..-.", 'G': "--.", 'H': "....", 'I': "..", 'J': ".---",
	'K': "-.-", 'L': ".-..", 'M': "--", 'N': "-.", 'O': "---",
	'P': ".--.", 'Q': "--.-", 'R': ".-.", 'S': "...", 'T': "-",
	'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-", 'Y': "-.--",
	'Z': "--..",

	'0': "-----", '1': ".----", '2': "..---", '3': "...--", '4': "....-",
	'5': ".....", '6': "-....", '7': "--...", '8': "---..", '9': "----.",

	'.': ".-.-.-", ',': "--..--", '?': "..--..", '\'': ".----.",
	'!': "-.-.--", '/': "-..-.", '(': "-.--.", ')': "-.--.-",
	'&': ".-...", ':': "---...", ';': "-.-.-.", '=': "-...-",
	'+': ".-.-.", '-': "-....-", '_': "..--.-", '"': ".-..-.",
	'$': "...-..-", '@': ".--.-.",
}

// reverse is built once from table; representations are unique by
// construction (checked by table_test.go), so this is an unambiguous
// one-to-one inverse.
var reverse = func() map[string]rune {
	r := make(map[string]rune, len(table))
	for c, rep := range table {
		r[rep] = c
	}
	return r
}()

// RepresentationOf returns the dot/dash representation of c. c is matched
// case-insensitively. ok is false if c has no known representation.
func RepresentationOf(c rune) (rep string, ok bool) {
	rep, ok = table[toUpper(c)]
	return rep, ok
}

// CharacterOf returns the character mapped to rep. rep is matched exactly
// (representations are already normalised to '.'/'-'). ok is false if rep is
// not a known representation.
func CharacterOf(rep string) (c rune, ok bool) {
	c, ok = reverse[rep]
	return c, ok
}

// ListAllCharacters returns every character with a known representation, in
// a deterministic (ascending rune) order.
func ListAllCharacters() []rune {
	out := make([]rune, 0, len(table))
	for c := range table {
		out = append(out, c)
	}
	// Simple insertion sort: the table is small (under 64 entries) and this
	// avoids pulling in sort for a one-shot, rarely-called listing.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// IsValidCharacter reports whether c has a known representation.
func IsValidCharacter(c rune) bool {
	_, ok := table[toUpper(c)]
	return ok
}

// IsValidRepresentation reports whether rep is a non-empty string over
// '.' and '-' that maps to a known character.
func IsValidRepresentation(rep string) bool {
	if rep == "" {
		return false
	}
	for _, r := range rep {
		if r != '.' && r != '-' {
			return false
		}
	}
	_, ok := reverse[rep]
	return ok
}

// IsValidRepresentationSyntax reports whether rep is a non-empty string over
// '.' and '-', independent of whether it maps to a known character. Used by
// the enqueue layer, which must be able to play an unassigned-but-well-formed
// representation.
func IsValidRepresentationSyntax(rep string) bool {
	if rep == "" {
		return false
	}
	for _, r := range rep {
		if r != '.' && r != '-' {
			return false
		}
	}
	return true
}

func toUpper(r rune) rune {
	return unicode.ToUpper(r)
}
