// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stages

import (
	"strings"
	"unicode/utf8"
)

// separators are tried in order when a piece of text is too long.
var separators = []string{"\n\n", "\n", ". ", " "}

// splitText cuts text into chunks of at most size runes, preferring
// paragraph, then line, then sentence, then word boundaries. Consecutive
// chunks share up to overlap runes of trailing context.
func splitText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 || runeLen(text) <= size {
		return []string{text}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	segments := splitRecursive(text, separators, size)

	var (
		chunks []string
		cur    []string
		curLen int
	)
	emit := func() {
		if c := strings.TrimSpace(strings.Join(cur, "")); c != "" {
			chunks = append(chunks, c)
		}
	}

	for _, seg := range segments {
		l := runeLen(seg)
		if curLen+l > size && len(cur) > 0 {
			emit()
			for len(cur) > 0 && (curLen > overlap || curLen+l > size) {
				curLen -= runeLen(cur[0])
				cur = cur[1:]
			}
		}
		cur = append(cur, seg)
		curLen += l
	}
	if len(cur) > 0 {
		emit()
	}
	return chunks
}

// splitRecursive breaks text into segments of at most size runes. Each
// segment keeps its trailing separator so joining them restores the input.
func splitRecursive(text string, seps []string, size int) []string {
	if runeLen(text) <= size {
		return []string{text}
	}
	if len(seps) == 0 {
		return hardSplit(text, size)
	}

	var out []string
	for _, part := range strings.SplitAfter(text, seps[0]) {
		if part == "" {
			continue
		}
		if runeLen(part) <= size {
			out = append(out, part)
			continue
		}
		out = append(out, splitRecursive(part, seps[1:], size)...)
	}
	return out
}

func hardSplit(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for len(runes) > 0 {
		n := min(size, len(runes))
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
