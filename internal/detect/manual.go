package detect

import (
    "fmt"
    "sort"
    "strconv"
    "strings"

    "github.com/local/chaptersplit/internal/chapter"
)

// ParseManual parses user-entered chapter ranges in the form
// "1:5-20, 2:21-45" (ChapterNum:StartPage-EndPage, comma separated) and
// validates them against the document. Parse and range failures return
// chapter.ErrInvalidRange.
func ParseManual(spec string, totalPages int) ([]chapter.Boundary, error) {
    var bounds []chapter.Boundary
    seen := make(map[int]bool)

    for _, part := range strings.Split(spec, ",") {
        part = strings.TrimSpace(part)
        if part == "" {
            continue
        }

        numStr, pageRange, ok := strings.Cut(part, ":")
        if !ok {
            return nil, fmt.Errorf("%w: %q is not ChapterNum:StartPage-EndPage", chapter.ErrInvalidRange, part)
        }
        startStr, endStr, ok := strings.Cut(pageRange, "-")
        if !ok {
            return nil, fmt.Errorf("%w: %q has no StartPage-EndPage range", chapter.ErrInvalidRange, part)
        }

        num, err := strconv.Atoi(strings.TrimSpace(numStr))
        if err != nil {
            return nil, fmt.Errorf("%w: bad chapter number in %q", chapter.ErrInvalidRange, part)
        }
        start, err := strconv.Atoi(strings.TrimSpace(startStr))
        if err != nil {
            return nil, fmt.Errorf("%w: bad start page in %q", chapter.ErrInvalidRange, part)
        }
        end, err := strconv.Atoi(strings.TrimSpace(endStr))
        if err != nil {
            return nil, fmt.Errorf("%w: bad end page in %q", chapter.ErrInvalidRange, part)
        }

        if start <= 0 || end < start || end > totalPages {
            return nil, fmt.Errorf("%w: chapter %d pages %d-%d (document has %d pages)",
                chapter.ErrInvalidRange, num, start, end, totalPages)
        }
        // Chapter numbers become filename ordinals; a repeat would make two
        // chapters write the same file.
        if seen[num] {
            return nil, fmt.Errorf("%w: duplicate chapter number %d", chapter.ErrInvalidRange, num)
        }
        seen[num] = true

        bounds = append(bounds, chapter.Boundary{
            Index:     num,
            Title:     fmt.Sprintf("Chapter %d (Manual)", num),
            StartPage: start,
            EndPage:   end,
        })
    }

    if len(bounds) == 0 {
        return nil, fmt.Errorf("%w: no ranges given", chapter.ErrInvalidRange)
    }

    sort.SliceStable(bounds, func(i, j int) bool { return bounds[i].Index < bounds[j].Index })

    if err := chapter.Validate(bounds, totalPages); err != nil {
        return nil, err
    }
    return bounds, nil
}
