package detect

import (
    "regexp"
    "sort"
    "strings"

    "github.com/rs/zerolog/log"

    "github.com/local/chaptersplit/internal/chapter"
    "github.com/local/chaptersplit/internal/document"
)

// chapterTitleRe matches titles that explicitly announce a chapter-like
// division: "Chapter 3", "Part IV", "Section 12", or standalone front/back
// matter headings.
var chapterTitleRe = regexp.MustCompile(`(?i)^(chapter|part|section)\s+(\d+|[IVXLCDM]+)\b|^(introduction|conclusion|appendix|foreword|preface)\b`)

// FromOutline derives chapter boundaries from an embedded table of contents.
//
// Level-1 entries matching chapterTitleRe (or short all-uppercase titles,
// which books often use for unnumbered chapters) become chapter starts. If
// nothing matches, every level-1 entry is used instead. Entries pointing at
// the same page are collapsed to the first. Each chapter ends one page
// before the next begins; the last runs to totalPages.
func FromOutline(entries []document.OutlineEntry, totalPages int) ([]chapter.Boundary, error) {
    if len(entries) == 0 {
        return nil, ErrNoTOC
    }

    var starts []chapter.Start
    for _, e := range entries {
        if e.Level != 1 || e.Page < 1 {
            continue
        }
        if chapterTitleRe.MatchString(e.Title) || looksLikeHeading(e.Title) {
            starts = append(starts, chapter.Start{Title: e.Title, Page: e.Page})
        }
    }

    if len(starts) == 0 {
        log.Info().Msg("no chapter-like level-1 TOC entries, falling back to all level-1 entries")
        for _, e := range entries {
            if e.Level == 1 && e.Page >= 1 {
                starts = append(starts, chapter.Start{Title: e.Title, Page: e.Page})
            }
        }
    }
    if len(starts) == 0 {
        return nil, ErrNoTOC
    }

    sort.SliceStable(starts, func(i, j int) bool { return starts[i].Page < starts[j].Page })

    // Collapse entries landing on the same page, keeping the first.
    unique := starts[:0]
    lastPage := -1
    for _, s := range starts {
        if s.Page == lastPage {
            log.Debug().Int("page", s.Page).Str("title", s.Title).Msg("ignoring duplicate TOC entry for page")
            continue
        }
        unique = append(unique, s)
        lastPage = s.Page
    }

    bounds := chapter.FromStarts(unique, totalPages)

    // Drop anything that ended up inverted (start past document end).
    valid := bounds[:0]
    for _, b := range bounds {
        if b.StartPage > totalPages || b.StartPage > b.EndPage {
            log.Warn().Str("title", b.Title).Int("start", b.StartPage).Int("end", b.EndPage).Msg("skipping chapter with invalid page range")
            continue
        }
        valid = append(valid, b)
    }
    for i := range valid {
        valid[i].Index = i + 1
    }

    if len(valid) == 0 {
        return nil, ErrNoTOC
    }
    return valid, nil
}

// looksLikeHeading flags short all-uppercase titles, a common style for
// unnumbered chapter headings.
func looksLikeHeading(title string) bool {
    t := strings.TrimSpace(title)
    if t == "" {
        return false
    }
    if len(strings.Fields(t)) >= 5 {
        return false
    }
    return t == strings.ToUpper(t) && strings.ToUpper(t) != strings.ToLower(t)
}
