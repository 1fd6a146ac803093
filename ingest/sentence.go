package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// abbreviations that should NOT be treated as sentence boundaries.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true,
	"prof": true, "sr": true, "jr": true,
	"vs": true, "etc": true, "inc": true, "ltd": true,
	"e.g": true, "i.e": true, "viz": true, "al": true,
	"approx": true, "dept": true, "est": true,
	"fig": true, "no": true, "vol": true,
}

// isAbbreviation checks if the text ending at dotPos (the '.') is a
// common abbreviation.
func isAbbreviation(text string, dotPos int) bool {
	start := dotPos
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		start -= size
	}
	word := strings.ToLower(text[start:dotPos])
	return abbreviations[word]
}

// isDecimalDot checks if the dot at dotPos is part of a number (e.g. 3.14).
func isDecimalDot(text string, dotPos int) bool {
	if dotPos == 0 || dotPos+1 >= len(text) {
		return false
	}
	prevByte := text[dotPos-1]
	nextByte := text[dotPos+1]
	return prevByte >= '0' && prevByte <= '9' && nextByte >= '0' && nextByte <= '9'
}

// sentenceBoundaries returns byte positions suitable for splitting text
// at sentence boundaries. Handles ASCII punctuation (.!?) with
// abbreviation and decimal number awareness, plus CJK sentence-ending
// punctuation (。！？；).
func sentenceBoundaries(text string) []int {
	var boundaries []int
	runes := []rune(text)
	n := len(runes)

	byteOffsets := make([]int, n+1)
	off := 0
	for i, r := range runes {
		byteOffsets[i] = off
		off += utf8.RuneLen(r)
	}
	byteOffsets[n] = off

	for i := 0; i < n; i++ {
		r := runes[i]

		// CJK sentence-ending punctuation, always a boundary after.
		if r == '。' || r == '！' || r == '？' || r == '；' {
			boundaries = append(boundaries, byteOffsets[i+1])
			continue
		}

		if r != '.' && r != '!' && r != '?' {
			continue
		}

		dotBytePos := byteOffsets[i]
		if r == '.' && isDecimalDot(text, dotBytePos) {
			continue
		}
		if r == '.' && isAbbreviation(text, dotBytePos) {
			continue
		}

		// Require whitespace (or end of text) after the punctuation.
		if i+1 >= n {
			boundaries = append(boundaries, byteOffsets[n])
		} else if runes[i+1] == ' ' || runes[i+1] == '\n' {
			boundaries = append(boundaries, byteOffsets[i+1])
		}
	}
	return boundaries
}

// splitSentences cuts text into sentences at detected boundaries.
// Delimiters stay attached to the sentence they end. Text with no
// internal boundary is returned whole.
func splitSentences(text string) []string {
	boundaries := sentenceBoundaries(text)
	if len(boundaries) == 0 {
		return []string{text}
	}

	var sentences []string
	start := 0
	for _, b := range boundaries {
		s := strings.TrimSpace(text[start:b])
		if s != "" {
			sentences = append(sentences, s)
		}
		start = b
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
