// Package extract provides the pure value extractors used by match handlers.
//
// Extractors select a line (by absolute position or relative to the first
// line containing a pattern) and a token within it (by whitespace field or
// by character column). They perform no I/O; callers read the target file
// and hand over its lines.
package extract

import "strings"

// SplitLines splits file content into lines without their terminators.
// A trailing newline does not produce an empty final line, and CRLF endings
// are treated like LF.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.TrimSuffix(content, "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// LineAt returns the n-th line. Positive n is 1-based from the start
// (1 is the first line); negative n counts from the end (-1 is the last
// line). Zero and out-of-range values report false.
func LineAt(lines []string, n int) (string, bool) {
	var idx int
	switch {
	case n > 0:
		idx = n - 1
	case n < 0:
		idx = len(lines) + n
	default:
		return "", false
	}
	if idx < 0 || idx >= len(lines) {
		return "", false
	}
	return lines[idx], true
}

// PatternIndex returns the index of the first line containing pattern as a
// case-sensitive substring.
func PatternIndex(lines []string, pattern string) (int, bool) {
	for i, line := range lines {
		if strings.Contains(line, pattern) {
			return i, true
		}
	}
	return 0, false
}

// FindPatternLine locates the first line containing pattern and returns the
// line offset lines after it. Offset 0 returns the matching line itself.
func FindPatternLine(lines []string, pattern string, offset int) (string, bool) {
	i, ok := PatternIndex(lines, pattern)
	if !ok {
		return "", false
	}
	target := i + offset
	if target < 0 || target >= len(lines) {
		return "", false
	}
	return lines[target], true
}

// CountPattern returns the number of lines containing pattern.
func CountPattern(lines []string, pattern string) int {
	count := 0
	for _, line := range lines {
		if strings.Contains(line, pattern) {
			count++
		}
	}
	return count
}

// Field returns the n-th (1-based) whitespace-separated token of line,
// like awk '{print $n}'.
func Field(line string, n int) (string, bool) {
	fields := strings.Fields(line)
	if n < 1 || n > len(fields) {
		return "", false
	}
	return fields[n-1], true
}

// Column returns the first whitespace-separated token at or after the
// 1-based character position pos, like cut -c<pos>- | awk '{print $1}'.
// A position past the end of the line reports false; a position followed
// only by blanks yields an empty token.
func Column(line string, pos int) (string, bool) {
	runes := []rune(line)
	if pos < 1 || pos > len(runes) {
		return "", false
	}
	fields := strings.Fields(string(runes[pos-1:]))
	if len(fields) == 0 {
		return "", true
	}
	return fields[0], true
}
