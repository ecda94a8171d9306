package chapter

import (
    "errors"
    "fmt"

    "github.com/rs/zerolog/log"
)

// ErrInvalidRange reports a chapter range that does not fit the document:
// pages out of bounds, start after end, or overlapping neighbors.
var ErrInvalidRange = errors.New("invalid chapter range")

// Boundary is one detected or user-entered chapter with inclusive 1-based
// page bounds. Index is the 1-based chapter ordinal used in filenames.
type Boundary struct {
    Index     int    `json:"index"`
    Title     string `json:"title"`
    StartPage int    `json:"start_page"`
    EndPage   int    `json:"end_page"`
}

func (b Boundary) PageCount() int { return b.EndPage - b.StartPage + 1 }

func (b Boundary) String() string {
    return fmt.Sprintf("%d. %s (pages %d-%d)", b.Index, b.Title, b.StartPage, b.EndPage)
}

// Start is a chapter starting point before end pages are derived.
type Start struct {
    Title string
    Page  int
}

// FromStarts converts ordered starting points into boundaries: each chapter
// ends one page before the next begins, the last runs to totalPages.
func FromStarts(starts []Start, totalPages int) []Boundary {
    bounds := make([]Boundary, 0, len(starts))
    for i, s := range starts {
        end := totalPages
        if i < len(starts)-1 {
            end = starts[i+1].Page - 1
        }
        bounds = append(bounds, Boundary{
            Index:     i + 1,
            Title:     s.Title,
            StartPage: s.Page,
            EndPage:   end,
        })
    }
    return bounds
}

// Validate checks every boundary fits the document and that consecutive
// boundaries ascend without overlapping.
func Validate(bounds []Boundary, totalPages int) error {
    prevEnd := 0
    for _, b := range bounds {
        if b.StartPage < 1 || b.EndPage > totalPages {
            return fmt.Errorf("%w: chapter %d pages %d-%d outside document (1-%d)",
                ErrInvalidRange, b.Index, b.StartPage, b.EndPage, totalPages)
        }
        if b.StartPage > b.EndPage {
            return fmt.Errorf("%w: chapter %d starts on page %d after its end page %d",
                ErrInvalidRange, b.Index, b.StartPage, b.EndPage)
        }
        if b.StartPage <= prevEnd {
            return fmt.Errorf("%w: chapter %d starts on page %d overlapping previous end %d",
                ErrInvalidRange, b.Index, b.StartPage, prevEnd)
        }
        prevEnd = b.EndPage
    }
    return nil
}

// Selection captures the review step: which chapters to export and a global
// page offset correcting a mismatch between printed and physical pages.
type Selection struct {
    Include map[int]bool `json:"include"`
    Offset  int          `json:"offset"`
}

// Included reports whether the chapter with the given index is selected.
// A nil Include map selects everything.
func (s Selection) Included(index int) bool {
    if s.Include == nil {
        return true
    }
    return s.Include[index]
}

// Apply filters bounds to the selected chapters and shifts them by the page
// offset. Chapters whose shifted start falls before page 1 are skipped; end
// pages past the document are clamped.
func (s Selection) Apply(bounds []Boundary, totalPages int) []Boundary {
    out := make([]Boundary, 0, len(bounds))
    for _, b := range bounds {
        if !s.Included(b.Index) {
            continue
        }
        b.StartPage += s.Offset
        b.EndPage += s.Offset
        if b.StartPage < 1 {
            log.Warn().Int("chapter", b.Index).Int("start", b.StartPage).Msg("offset pushed chapter before page 1, skipping")
            continue
        }
        if b.StartPage > totalPages {
            log.Warn().Int("chapter", b.Index).Int("start", b.StartPage).Msg("offset pushed chapter past document end, skipping")
            continue
        }
        if b.EndPage > totalPages {
            b.EndPage = totalPages
        }
        out = append(out, b)
    }
    return out
}
