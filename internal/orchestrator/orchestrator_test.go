package orchestrator

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "mime/multipart"
    "net/http"
    "net/http/httptest"
    "os"
    "path/filepath"
    "strings"
    "sync"
    "testing"

    "github.com/local/chaptersplit/internal/chapter"
    "github.com/local/chaptersplit/internal/config"
    "github.com/local/chaptersplit/internal/detect"
    "github.com/local/chaptersplit/internal/document"
    "github.com/local/chaptersplit/internal/export"
    "github.com/local/chaptersplit/internal/session"
)

type fakeDoc struct {
    pages  int
    closed bool
}

func (f *fakeDoc) PageCount() int                    { return f.pages }
func (f *fakeDoc) PageText(int) (string, error)      { return "text", nil }
func (f *fakeDoc) MarkedText([]int) string           { return "text" }
func (f *fakeDoc) Close() error                      { f.closed = true; return nil }
func (f *fakeDoc) Outline() ([]document.OutlineEntry, error) {
    return nil, nil
}

type stubDetector struct {
    bounds []chapter.Boundary
    err    error

    gotStrategy detect.Strategy
    gotManual   string
}

func (s *stubDetector) Detect(ctx context.Context, src detect.Source, strategy detect.Strategy, manual string) ([]chapter.Boundary, error) {
    s.gotStrategy = strategy
    s.gotManual = manual
    return s.bounds, s.err
}

type stubExporter struct {
    results []export.Result
    err     error

    gotBounds []chapter.Boundary
    gotDir    string
}

func (s *stubExporter) Export(ctx context.Context, srcPath string, bounds []chapter.Boundary, outputDir string) ([]export.Result, error) {
    s.gotBounds = bounds
    s.gotDir = outputDir
    return s.results, s.err
}

func testServer(t *testing.T, det Detector, exp Exporter) (*Orchestrator, *httptest.Server, session.Store) {
    t.Helper()
    store := session.NewMemoryStore()
    conf := config.Config{
        Export: config.ExportConfig{OutputDir: t.TempDir()},
        Web:    config.WebConfig{UploadDir: t.TempDir()},
    }
    o := New(Dependencies{Store: store, Detector: det, Exporter: exp, Fetcher: &document.Fetcher{}, Conf: conf})
    o.openDoc = func(path string) (Doc, error) {
        if strings.Contains(path, "broken") {
            return nil, &document.LoadError{Path: path, Err: errors.New("not a PDF")}
        }
        return &fakeDoc{pages: 10}, nil
    }

    mux := http.NewServeMux()
    o.RegisterRoutes(mux)
    srv := httptest.NewServer(mux)
    t.Cleanup(srv.Close)
    t.Cleanup(o.Close)
    return o, srv, store
}

func uploadPDF(t *testing.T, srv *httptest.Server, filename string) loadResp {
    t.Helper()
    var buf bytes.Buffer
    mw := multipart.NewWriter(&buf)
    fw, err := mw.CreateFormFile("file", filename)
    if err != nil {
        t.Fatal(err)
    }
    fmt.Fprint(fw, "%PDF-1.4 stub")
    mw.Close()

    resp, err := http.Post(srv.URL+"/api/load", mw.FormDataContentType(), &buf)
    if err != nil {
        t.Fatal(err)
    }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusCreated {
        t.Fatalf("load status = %d", resp.StatusCode)
    }
    var lr loadResp
    if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
        t.Fatal(err)
    }
    return lr
}

func postJSON(t *testing.T, url string, body any) *http.Response {
    t.Helper()
    data, err := json.Marshal(body)
    if err != nil {
        t.Fatal(err)
    }
    resp, err := http.Post(url, "application/json", bytes.NewReader(data))
    if err != nil {
        t.Fatal(err)
    }
    return resp
}

func TestLoadUpload(t *testing.T) {
    _, srv, store := testServer(t, &stubDetector{}, &stubExporter{})

    lr := uploadPDF(t, srv, "book.pdf")
    if lr.SessionID == "" || lr.PageCount != 10 {
        t.Errorf("loadResp = %+v", lr)
    }

    s, err := store.Get(context.Background(), lr.SessionID)
    if err != nil {
        t.Fatalf("session not stored: %v", err)
    }
    if !s.TempFile || s.PageCount != 10 {
        t.Errorf("session = %+v", s)
    }
}

func TestLoadRejectsBadDocument(t *testing.T) {
    _, srv, _ := testServer(t, &stubDetector{}, &stubExporter{})

    resp := postJSON(t, srv.URL+"/api/load", loadReq{SourceRef: "/tmp/broken.pdf"})
    defer resp.Body.Close()
    // The fetcher stats local paths first, so a missing file is already a
    // load error.
    if resp.StatusCode != http.StatusUnprocessableEntity {
        t.Errorf("status = %d, want 422", resp.StatusCode)
    }
}

func TestDetectFlow(t *testing.T) {
    det := &stubDetector{bounds: []chapter.Boundary{
        {Index: 1, Title: "Intro", StartPage: 1, EndPage: 3},
        {Index: 2, Title: "Chapter 1", StartPage: 4, EndPage: 10},
    }}
    _, srv, store := testServer(t, det, &stubExporter{})
    lr := uploadPDF(t, srv, "book.pdf")

    resp := postJSON(t, srv.URL+"/api/detect", detectReq{SessionID: lr.SessionID, Strategy: "toc"})
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        t.Fatalf("detect status = %d", resp.StatusCode)
    }
    var dr detectResp
    if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
        t.Fatal(err)
    }
    if len(dr.Chapters) != 2 || dr.Strategy != "toc" {
        t.Errorf("detectResp = %+v", dr)
    }
    if det.gotStrategy != detect.StrategyTOC {
        t.Errorf("detector got strategy %q", det.gotStrategy)
    }

    s, _ := store.Get(context.Background(), lr.SessionID)
    if len(s.Boundaries) != 2 || s.Strategy != "toc" {
        t.Errorf("session not updated: %+v", s)
    }
}

func TestDetectErrorMapping(t *testing.T) {
    tests := []struct {
        name string
        err  error
        want int
    }{
        {"no toc", detect.ErrNoTOC, http.StatusNotFound},
        {"ai request", &detect.AIRequestError{Err: errors.New("down")}, http.StatusBadGateway},
        {"ai parse", &detect.AIParseError{Err: errors.New("prose")}, http.StatusBadGateway},
        {"bad manual range", fmt.Errorf("%w: nope", chapter.ErrInvalidRange), http.StatusBadRequest},
        {"other", errors.New("boom"), http.StatusInternalServerError},
    }

    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            det := &stubDetector{err: tt.err}
            _, srv, _ := testServer(t, det, &stubExporter{})
            lr := uploadPDF(t, srv, "book.pdf")

            resp := postJSON(t, srv.URL+"/api/detect", detectReq{SessionID: lr.SessionID, Strategy: "ai"})
            defer resp.Body.Close()
            if resp.StatusCode != tt.want {
                t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
            }
        })
    }
}

func TestDetectFailureKeepsPreviousBoundaries(t *testing.T) {
    det := &stubDetector{bounds: []chapter.Boundary{{Index: 1, Title: "Intro", StartPage: 1, EndPage: 10}}}
    _, srv, store := testServer(t, det, &stubExporter{})
    lr := uploadPDF(t, srv, "book.pdf")

    resp := postJSON(t, srv.URL+"/api/detect", detectReq{SessionID: lr.SessionID, Strategy: "toc"})
    resp.Body.Close()

    det.bounds, det.err = nil, &detect.AIRequestError{Err: errors.New("provider down")}
    resp = postJSON(t, srv.URL+"/api/detect", detectReq{SessionID: lr.SessionID, Strategy: "ai"})
    resp.Body.Close()
    if resp.StatusCode != http.StatusBadGateway {
        t.Fatalf("failed detect status = %d, want 502", resp.StatusCode)
    }

    s, _ := store.Get(context.Background(), lr.SessionID)
    if len(s.Boundaries) != 1 || s.Strategy != "toc" {
        t.Errorf("failed detection clobbered session state: %+v", s)
    }
}

func TestDetectUnknownSession(t *testing.T) {
    _, srv, _ := testServer(t, &stubDetector{}, &stubExporter{})
    resp := postJSON(t, srv.URL+"/api/detect", detectReq{SessionID: "ghost", Strategy: "toc"})
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusNotFound {
        t.Errorf("status = %d, want 404", resp.StatusCode)
    }
}

func TestDetectRejectsUnknownStrategy(t *testing.T) {
    _, srv, _ := testServer(t, &stubDetector{}, &stubExporter{})
    resp := postJSON(t, srv.URL+"/api/detect", detectReq{SessionID: "any", Strategy: "psychic"})
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusBadRequest {
        t.Errorf("status = %d, want 400", resp.StatusCode)
    }
}

func TestExportFlow(t *testing.T) {
    bounds := []chapter.Boundary{
        {Index: 1, Title: "Intro", StartPage: 1, EndPage: 3},
        {Index: 2, Title: "Chapter 1", StartPage: 4, EndPage: 10},
    }
    det := &stubDetector{bounds: bounds}
    exp := &stubExporter{results: []export.Result{
        {Boundary: bounds[1], OutputPath: "02_Chapter_1.pdf"},
    }}
    _, srv, store := testServer(t, det, exp)
    lr := uploadPDF(t, srv, "book.pdf")

    resp := postJSON(t, srv.URL+"/api/detect", detectReq{SessionID: lr.SessionID, Strategy: "toc"})
    resp.Body.Close()

    resp = postJSON(t, srv.URL+"/api/export", exportReq{
        SessionID: lr.SessionID,
        Include:   map[int]bool{2: true},
        Offset:    0,
    })
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        t.Fatalf("export status = %d", resp.StatusCode)
    }
    var er exportResp
    if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
        t.Fatal(err)
    }
    if er.Exported != 1 || er.Failed != 0 {
        t.Errorf("exportResp = %+v", er)
    }

    if len(exp.gotBounds) != 1 || exp.gotBounds[0].Index != 2 {
        t.Errorf("exporter got %v, want only chapter 2", exp.gotBounds)
    }

    s, _ := store.Get(context.Background(), lr.SessionID)
    if s.ExportDir != er.OutputDir {
        t.Errorf("session export dir %q != response %q", s.ExportDir, er.OutputDir)
    }
}

func TestExportWithoutDetection(t *testing.T) {
    _, srv, _ := testServer(t, &stubDetector{}, &stubExporter{})
    lr := uploadPDF(t, srv, "book.pdf")

    resp := postJSON(t, srv.URL+"/api/export", exportReq{SessionID: lr.SessionID})
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusBadRequest {
        t.Errorf("status = %d, want 400", resp.StatusCode)
    }
}

func TestExportEmptySelection(t *testing.T) {
    det := &stubDetector{bounds: []chapter.Boundary{{Index: 1, Title: "Only", StartPage: 1, EndPage: 10}}}
    _, srv, _ := testServer(t, det, &stubExporter{})
    lr := uploadPDF(t, srv, "book.pdf")

    resp := postJSON(t, srv.URL+"/api/detect", detectReq{SessionID: lr.SessionID, Strategy: "toc"})
    resp.Body.Close()

    resp = postJSON(t, srv.URL+"/api/export", exportReq{SessionID: lr.SessionID, Include: map[int]bool{99: true}})
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusBadRequest {
        t.Errorf("status = %d, want 400", resp.StatusCode)
    }
}

func TestSessionLifecycle(t *testing.T) {
    _, srv, _ := testServer(t, &stubDetector{}, &stubExporter{})
    lr := uploadPDF(t, srv, "book.pdf")

    resp, err := http.Get(srv.URL + "/api/session/" + lr.SessionID)
    if err != nil {
        t.Fatal(err)
    }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        t.Fatalf("get session status = %d", resp.StatusCode)
    }
    var s session.Session
    if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
        t.Fatal(err)
    }
    if s.ID != lr.SessionID || s.PageCount != 10 {
        t.Errorf("session = %+v", s)
    }

    req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/session/"+lr.SessionID, nil)
    dresp, err := http.DefaultClient.Do(req)
    if err != nil {
        t.Fatal(err)
    }
    dresp.Body.Close()
    if dresp.StatusCode != http.StatusNoContent {
        t.Errorf("delete status = %d", dresp.StatusCode)
    }
    if _, err := os.Stat(s.LocalPath); !os.IsNotExist(err) {
        t.Errorf("temp upload %s not removed", s.LocalPath)
    }

    gresp, _ := http.Get(srv.URL + "/api/session/" + lr.SessionID)
    gresp.Body.Close()
    if gresp.StatusCode != http.StatusNotFound {
        t.Errorf("get after delete status = %d", gresp.StatusCode)
    }
}

func TestDocForConcurrentMissesShareOneHandle(t *testing.T) {
    o, _, _ := testServer(t, &stubDetector{}, &stubExporter{})

    var (
        openedMu sync.Mutex
        opened   []*fakeDoc
        inFlight sync.WaitGroup
    )
    inFlight.Add(2)
    o.openDoc = func(path string) (Doc, error) {
        // Hold both opens in flight so each request sees a cache miss.
        inFlight.Done()
        inFlight.Wait()
        d := &fakeDoc{pages: 10}
        openedMu.Lock()
        opened = append(opened, d)
        openedMu.Unlock()
        return d, nil
    }

    s := &session.Session{ID: "s1", LocalPath: "/tmp/book.pdf"}
    docs := make([]Doc, 2)
    var wg sync.WaitGroup
    for i := 0; i < 2; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            d, err := o.docFor(s)
            if err != nil {
                t.Errorf("docFor() error = %v", err)
                return
            }
            docs[i] = d
        }(i)
    }
    wg.Wait()

    if docs[0] != docs[1] {
        t.Error("concurrent requests got different document handles")
    }
    if len(opened) != 2 {
        t.Fatalf("openDoc called %d times, want 2", len(opened))
    }
    live := 0
    for _, d := range opened {
        if !d.closed {
            live++
        }
    }
    if live != 1 {
        t.Errorf("%d handles left open, want exactly the cached one", live)
    }
}

func TestDownload(t *testing.T) {
    _, srv, store := testServer(t, &stubDetector{}, &stubExporter{})
    lr := uploadPDF(t, srv, "book.pdf")

    dir := t.TempDir()
    if err := os.WriteFile(filepath.Join(dir, "01_Intro.pdf"), []byte("%PDF-stub"), 0o644); err != nil {
        t.Fatal(err)
    }
    s, _ := store.Get(context.Background(), lr.SessionID)
    s.ExportDir = dir
    if err := store.Put(context.Background(), s); err != nil {
        t.Fatal(err)
    }

    resp, err := http.Get(srv.URL + "/api/download/" + lr.SessionID + "/01_Intro.pdf")
    if err != nil {
        t.Fatal(err)
    }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        t.Errorf("download status = %d", resp.StatusCode)
    }
    if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
        t.Errorf("content type = %q", ct)
    }

    tresp, _ := http.Get(srv.URL + "/api/download/" + lr.SessionID + "/missing.pdf")
    tresp.Body.Close()
    if tresp.StatusCode != http.StatusNotFound {
        t.Errorf("missing file status = %d", tresp.StatusCode)
    }
}
