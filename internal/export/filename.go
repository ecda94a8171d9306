package export

import (
    "fmt"
    "regexp"
)

var (
    invalidChars = regexp.MustCompile(`[\\/*?:"<>|]`)
    whitespace   = regexp.MustCompile(`\s+`)
)

// Sanitize makes a chapter title safe as a filename component: filesystem-
// reserved characters are removed, whitespace runs become single underscores.
func Sanitize(title string) string {
    safe := invalidChars.ReplaceAllString(title, "")
    safe = whitespace.ReplaceAllString(safe, "_")
    return safe
}

// Filename builds the output filename for a chapter, prefixed with its
// zero-padded ordinal so files sort in reading order.
func Filename(index int, title string) string {
    safe := Sanitize(title)
    if safe == "" {
        safe = "chapter"
    }
    return fmt.Sprintf("%02d_%s.pdf", index, safe)
}
