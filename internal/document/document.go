package document

import (
    "fmt"
    "strings"
    "sync"

    fitz "github.com/gen2brain/go-fitz"
    "github.com/pdfcpu/pdfcpu/pkg/api"
    "github.com/rs/zerolog/log"

    "github.com/local/chaptersplit/internal/filetype"
)

// LoadError indicates a source file could not be opened as a PDF: missing
// path, non-PDF content, or an encrypted document without a usable password.
type LoadError struct {
    Path string
    Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.Path, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// OutlineEntry is one embedded table-of-contents entry with a 1-based page.
type OutlineEntry struct {
    Level int
    Title string
    Page  int
}

// backend is the slice of *fitz.Document the Document drives.
type backend interface {
    NumPage() int
    Text(pageNumber int) (string, error)
    ToC() ([]fitz.Outline, error)
    Close() error
}

// Document is an open PDF with lazy per-page text extraction. The handle is
// owned by a single session and replaced wholesale when a new file loads.
type Document struct {
    doc       backend
    path      string
    pageCount int

    // mu serializes every call into the underlying fitz context, which is
    // not safe for concurrent use, and guards the text cache.
    mu       sync.Mutex
    pageText map[int]string
}

// Open validates path as a PDF and opens it. The page count is cross-checked
// with pdfcpu, which also rejects encrypted documents up front.
func Open(path string) (*Document, error) {
    info, err := filetype.Detect(path)
    if err != nil {
        return nil, &LoadError{Path: path, Err: err}
    }
    if !info.IsPDF {
        return nil, &LoadError{Path: path, Err: fmt.Errorf("not a PDF: %s", info.Description)}
    }

    n, err := api.PageCountFile(path)
    if err != nil {
        return nil, &LoadError{Path: path, Err: fmt.Errorf("pdf validation failed: %w", err)}
    }

    doc, err := fitz.New(path)
    if err != nil {
        return nil, &LoadError{Path: path, Err: err}
    }
    if doc.NumPage() != n {
        log.Warn().Str("path", path).Int("fitz", doc.NumPage()).Int("pdfcpu", n).Msg("page count mismatch between backends")
    }

    log.Info().Str("path", path).Int("pages", n).Msg("opened PDF")
    return &Document{doc: doc, path: path, pageCount: n, pageText: make(map[int]string)}, nil
}

func (d *Document) Path() string   { return d.path }
func (d *Document) PageCount() int { return d.pageCount }

func (d *Document) Close() error {
    d.mu.Lock()
    defer d.mu.Unlock()
    return d.doc.Close()
}

// PageText extracts cleaned text for a 1-based page, caching results.
func (d *Document) PageText(page int) (string, error) {
    if page < 1 || page > d.pageCount {
        return "", fmt.Errorf("page %d out of range (document has %d pages)", page, d.pageCount)
    }

    d.mu.Lock()
    defer d.mu.Unlock()
    if cached, ok := d.pageText[page]; ok {
        return cached, nil
    }

    raw, err := d.doc.Text(page - 1)
    if err != nil {
        return "", fmt.Errorf("extract text page %d: %w", page, err)
    }
    cleaned := cleanText(raw, page)
    d.pageText[page] = cleaned
    return cleaned, nil
}

// MarkedText extracts text for the given 1-based pages, each preceded by a
// "--- PAGE N ---" marker so a model can attribute content to pages. Pages
// that fail extraction are included with an empty body rather than aborting.
func (d *Document) MarkedText(pages []int) string {
    var b strings.Builder
    for _, p := range pages {
        text, err := d.PageText(p)
        if err != nil {
            log.Warn().Err(err).Int("page", p).Msg("failed to extract text from page")
            text = ""
        }
        fmt.Fprintf(&b, "\n--- PAGE %d ---\n%s\n", p, text)
    }
    return b.String()
}

// Outline returns the document's embedded table of contents with 1-based
// pages. Entries without a resolvable page destination are dropped.
func (d *Document) Outline() ([]OutlineEntry, error) {
    d.mu.Lock()
    toc, err := d.doc.ToC()
    d.mu.Unlock()
    if err != nil {
        return nil, fmt.Errorf("read outline: %w", err)
    }
    entries := make([]OutlineEntry, 0, len(toc))
    for _, item := range toc {
        // go-fitz pages are 0-based; unresolved destinations come back negative.
        if item.Page < 0 {
            continue
        }
        entries = append(entries, OutlineEntry{
            Level: item.Level,
            Title: strings.TrimSpace(item.Title),
            Page:  item.Page + 1,
        })
    }
    return entries, nil
}
