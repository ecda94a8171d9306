package document

import (
    "sync"
    "sync/atomic"
    "testing"

    fitz "github.com/gen2brain/go-fitz"
)

type fakeBackend struct {
    pages     int
    toc       []fitz.Outline
    textCalls atomic.Int64
    tocCalls  atomic.Int64

    // busy flags a call in flight so overlapping fitz access is detected.
    busy atomic.Bool
}

func (f *fakeBackend) enter(t *testing.T) {
    if !f.busy.CompareAndSwap(false, true) {
        t.Error("concurrent call into the PDF backend")
    }
}

func (f *fakeBackend) leave() { f.busy.Store(false) }

func (f *fakeBackend) NumPage() int { return f.pages }
func (f *fakeBackend) Close() error { return nil }

func (f *fakeBackend) Text(pageNumber int) (string, error) {
    f.textCalls.Add(1)
    return "page text", nil
}

func (f *fakeBackend) ToC() ([]fitz.Outline, error) {
    f.tocCalls.Add(1)
    return f.toc, nil
}

// guardedBackend wraps fakeBackend with in-flight detection hooked to the test.
type guardedBackend struct {
    *fakeBackend
    t *testing.T
}

func (g *guardedBackend) Text(pageNumber int) (string, error) {
    g.enter(g.t)
    defer g.leave()
    return g.fakeBackend.Text(pageNumber)
}

func (g *guardedBackend) ToC() ([]fitz.Outline, error) {
    g.enter(g.t)
    defer g.leave()
    return g.fakeBackend.ToC()
}

func testDocument(t *testing.T, b backend, pages int) *Document {
    t.Helper()
    return &Document{doc: b, path: "test.pdf", pageCount: pages, pageText: make(map[int]string)}
}

func TestPageTextExtractsOnce(t *testing.T) {
    fb := &fakeBackend{pages: 5}
    d := testDocument(t, &guardedBackend{fakeBackend: fb, t: t}, 5)

    var wg sync.WaitGroup
    for i := 0; i < 8; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            if _, err := d.PageText(3); err != nil {
                t.Errorf("PageText() error = %v", err)
            }
        }()
    }
    wg.Wait()

    if got := fb.textCalls.Load(); got != 1 {
        t.Errorf("page 3 extracted %d times, want once", got)
    }
}

func TestOutlineAndTextSerialize(t *testing.T) {
    fb := &fakeBackend{pages: 20, toc: []fitz.Outline{{Level: 1, Title: "Chapter 1", Page: 0}}}
    d := testDocument(t, &guardedBackend{fakeBackend: fb, t: t}, 20)

    var wg sync.WaitGroup
    for i := 0; i < 4; i++ {
        page := i + 1
        wg.Add(2)
        go func() {
            defer wg.Done()
            if _, err := d.Outline(); err != nil {
                t.Errorf("Outline() error = %v", err)
            }
        }()
        go func() {
            defer wg.Done()
            if _, err := d.PageText(page); err != nil {
                t.Errorf("PageText() error = %v", err)
            }
        }()
    }
    wg.Wait()
}

func TestOutlineNormalizesPages(t *testing.T) {
    fb := &fakeBackend{pages: 30, toc: []fitz.Outline{
        {Level: 1, Title: " Introduction ", Page: 0},
        {Level: 1, Title: "Unresolved", Page: -1},
        {Level: 2, Title: "Nested", Page: 4},
    }}
    d := testDocument(t, fb, 30)

    entries, err := d.Outline()
    if err != nil {
        t.Fatalf("Outline() error = %v", err)
    }
    if len(entries) != 2 {
        t.Fatalf("Outline() = %v, want unresolved entry dropped", entries)
    }
    if entries[0].Page != 1 || entries[0].Title != "Introduction" {
        t.Errorf("entry 0 = %+v, want 1-based page and trimmed title", entries[0])
    }
    if entries[1].Page != 5 || entries[1].Level != 2 {
        t.Errorf("entry 1 = %+v", entries[1])
    }
}
