package game

import (
	"math/rand/v2"
	"unicode"
	"unicode/utf8"
)

const maskRune = '_'

// initialMask builds the starting display for a word-blocks secret:
// exactly one uniformly random position revealed, every other position
// masked. Duplicates of the revealed letter stay hidden. An empty
// secret yields an empty mask.
func initialMask(secret string) string {
	runes := []rune(secret)
	if len(runes) == 0 {
		return ""
	}
	reveal := rand.IntN(len(runes))
	out := make([]rune, len(runes))
	for i := range runes {
		if i == reveal {
			out[i] = runes[i]
		} else {
			out[i] = maskRune
		}
	}
	return string(out)
}

// applyLetter reveals every masked position of secret equal to letter.
// Reports whether anything changed.
func applyLetter(secret, mask string, letter rune) (string, bool) {
	sr := []rune(secret)
	mr := []rune(mask)
	if len(mr) != len(sr) {
		return mask, false
	}
	changed := false
	for i, ch := range sr {
		if ch == letter && mr[i] == maskRune {
			mr[i] = letter
			changed = true
		}
	}
	return string(mr), changed
}

// maskedCount returns how many positions are still hidden.
func maskedCount(mask string) int {
	n := 0
	for _, ch := range mask {
		if ch == maskRune {
			n++
		}
	}
	return n
}

// singleLetter extracts the letter from a one-rune alphabetic message.
func singleLetter(text string) (rune, bool) {
	if utf8.RuneCountInString(text) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(text)
	if !unicode.IsLetter(r) {
		return 0, false
	}
	return r, true
}
