package detect

import (
    "encoding/json"
    "fmt"
    "sort"
    "strings"

    "github.com/rs/zerolog/log"

    "github.com/local/chaptersplit/internal/chapter"
)

const aiSystemPrompt = "You are a document-structure analyst. You identify chapter boundaries in book text and answer with machine-readable JSON only."

// aiChapter is one element of the JSON list the model is asked to return.
type aiChapter struct {
    ChapterNum int    `json:"chapter_num"`
    Title      string `json:"title"`
    StartPage  int    `json:"start_page"`
    EndPage    int    `json:"end_page"`
}

func buildPrompt(text string, totalPages int, sampled bool) string {
    var b strings.Builder
    fmt.Fprintf(&b, "Analyze the following text extracted from a PDF document with %d pages.\n", totalPages)
    if sampled {
        b.WriteString("Only a sample of the pages is included; page markers show which.\n")
    }
    fmt.Fprintf(&b, `
Your task is to identify the main chapters (like Introduction, Chapter 1, Chapter 2, Part I, Part II, Appendix, etc.) and determine their start and end page numbers (1-based).

Provide the output STRICTLY in JSON format. The JSON should be a list of objects, where each object represents a chapter and has the following keys:
- "chapter_num": An integer representing the sequential order (starting from 1).
- "title": A concise title for the chapter/section.
- "start_page": The 1-based page number where the chapter begins.
- "end_page": The 1-based page number where the chapter ends. The end page of one chapter should ideally be the page before the start page of the next. The last chapter must end on page %d.

Ensure the page ranges are contiguous and cover the document reasonably well from page 1 to %d. Make sure start_page and end_page are valid integers within [1, %d] and start_page <= end_page.

--- START OF DOCUMENT TEXT ---
%s
--- END OF DOCUMENT TEXT ---

Respond ONLY with the JSON list. Do not include markdown backticks or any other text before or after the JSON.
`, totalPages, totalPages, totalPages, text)
    return b.String()
}

// samplePages picks an evenly spaced subset of 1-based pages sized so the
// extracted text should fit budgetChars, always keeping the first and last
// page. fullChars is the measured size of the complete extraction.
func samplePages(totalPages, fullChars, budgetChars int) []int {
    if totalPages <= 2 || fullChars <= budgetChars {
        pages := make([]int, totalPages)
        for i := range pages {
            pages[i] = i + 1
        }
        return pages
    }

    keep := totalPages * budgetChars / fullChars
    if keep < 2 {
        keep = 2
    }
    if keep > totalPages {
        keep = totalPages
    }

    pages := make([]int, 0, keep)
    seen := make(map[int]bool, keep)
    for i := 0; i < keep; i++ {
        // Spread keep picks across [1, totalPages] with both ends included.
        p := 1 + i*(totalPages-1)/(keep-1)
        if !seen[p] {
            pages = append(pages, p)
            seen[p] = true
        }
    }
    return pages
}

// stripFences removes a markdown code fence around a model reply. Models add
// them despite instructions often enough that parsing has to tolerate it.
func stripFences(s string) string {
    s = strings.TrimSpace(s)
    if strings.HasPrefix(s, "```") {
        s = strings.TrimPrefix(s, "```json")
        s = strings.TrimPrefix(s, "```")
        s = strings.TrimSuffix(strings.TrimSpace(s), "```")
    }
    return strings.TrimSpace(s)
}

// parseAIChapters validates a model reply into boundaries. Items with out-of-
// range pages are dropped; a reply with no usable items is an AIParseError.
func parseAIChapters(raw string, totalPages int) ([]chapter.Boundary, error) {
    cleaned := stripFences(raw)

    var items []aiChapter
    if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
        return nil, &AIParseError{Raw: truncate(raw, 512), Err: err}
    }

    var bounds []chapter.Boundary
    for _, it := range items {
        title := strings.TrimSpace(it.Title)
        if title == "" {
            title = fmt.Sprintf("Chapter %d (AI)", it.ChapterNum)
        }
        if it.ChapterNum <= 0 || it.StartPage < 1 || it.StartPage > it.EndPage || it.EndPage > totalPages {
            log.Warn().Int("chapter", it.ChapterNum).Int("start", it.StartPage).Int("end", it.EndPage).Str("title", title).Msg("skipping invalid range from AI")
            continue
        }
        bounds = append(bounds, chapter.Boundary{
            Index:     it.ChapterNum,
            Title:     title,
            StartPage: it.StartPage,
            EndPage:   it.EndPage,
        })
    }

    if len(bounds) == 0 {
        return nil, &AIParseError{Raw: truncate(raw, 512), Err: fmt.Errorf("no valid chapter ranges in reply")}
    }

    sort.SliceStable(bounds, func(i, j int) bool { return bounds[i].Index < bounds[j].Index })
    for i := range bounds {
        bounds[i].Index = i + 1
    }
    return bounds, nil
}

func truncate(s string, n int) string {
    if len(s) <= n {
        return s
    }
    return s[:n]
}
