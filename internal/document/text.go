package document

import (
    "fmt"
    "strings"
)

// cleanText strips page-number lines and glyph noise from extracted text and
// rejoins sentences broken by layout. Short uppercase lines are kept: chapter
// headings often look exactly like that and boundary detection needs them.
func cleanText(text string, pageNum int) string {
    lines := strings.Split(text, "\n")
    var kept []string

    for _, line := range lines {
        trimmed := strings.TrimSpace(line)
        if trimmed == "" {
            continue
        }
        if isPageNumber(trimmed, pageNum) {
            continue
        }
        if isNoise(trimmed) {
            continue
        }
        kept = append(kept, line)
    }

    result := fixBrokenLines(strings.Join(kept, "\n"))
    return strings.TrimSpace(result)
}

func isPageNumber(line string, pageNum int) bool {
    if line == fmt.Sprintf("%d", pageNum) {
        return true
    }

    patterns := []string{
        fmt.Sprintf("Page %d", pageNum),
        fmt.Sprintf("- %d -", pageNum),
        fmt.Sprintf("[%d]", pageNum),
    }
    for _, pattern := range patterns {
        if strings.EqualFold(line, pattern) {
            return true
        }
    }
    return false
}

// isNoise reports lines with no letters or digits at all (rule artifacts,
// bullet glyph runs).
func isNoise(line string) bool {
    for _, r := range line {
        if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
            return false
        }
    }
    return true
}

// fixBrokenLines merges a line with its successor when the break falls
// mid-sentence: no terminal punctuation, next line starts lowercase, and the
// line is not hyphenated.
func fixBrokenLines(text string) string {
    lines := strings.Split(text, "\n")
    var fixed []string

    for i := 0; i < len(lines); i++ {
        line := lines[i]

        if i < len(lines)-1 {
            trimmed := strings.TrimSpace(line)
            next := strings.TrimSpace(lines[i+1])

            if trimmed != "" && next != "" {
                last := trimmed[len(trimmed)-1]
                sentenceEnd := last == '.' || last == '!' || last == '?' || last == ':' || last == ';'

                if !sentenceEnd && !strings.HasSuffix(trimmed, "-") {
                    first := next[0]
                    if first >= 'a' && first <= 'z' {
                        fixed = append(fixed, trimmed+" "+next)
                        i++
                        continue
                    }
                }
            }
        }

        fixed = append(fixed, line)
    }

    return strings.Join(fixed, "\n")
}
