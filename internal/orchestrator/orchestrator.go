package orchestrator

import (
    "context"
    "errors"
    "fmt"
    "io"
    "net/http"
    "os"
    "path/filepath"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/rs/zerolog/log"

    "github.com/local/chaptersplit/internal/chapter"
    "github.com/local/chaptersplit/internal/config"
    "github.com/local/chaptersplit/internal/detect"
    "github.com/local/chaptersplit/internal/document"
    "github.com/local/chaptersplit/internal/export"
    "github.com/local/chaptersplit/internal/session"
)

// Doc is the slice of an open document the orchestrator works with.
type Doc interface {
    PageCount() int
    PageText(page int) (string, error)
    MarkedText(pages []int) string
    Outline() ([]document.OutlineEntry, error)
    Close() error
}

// Detector finds chapter boundaries for one document.
type Detector interface {
    Detect(ctx context.Context, src detect.Source, strategy detect.Strategy, manualSpec string) ([]chapter.Boundary, error)
}

// Exporter writes selected chapters to individual PDFs.
type Exporter interface {
    Export(ctx context.Context, srcPath string, bounds []chapter.Boundary, outputDir string) ([]export.Result, error)
}

type Dependencies struct {
    Store    session.Store
    Detector Detector
    Exporter Exporter
    Fetcher  *document.Fetcher
    Conf     config.Config
}

type Orchestrator struct {
    deps Dependencies

    // openDoc is swapped out in tests.
    openDoc func(path string) (Doc, error)

    mu   sync.Mutex
    docs map[string]Doc
}

func New(deps Dependencies) *Orchestrator {
    return &Orchestrator{
        deps:    deps,
        openDoc: func(path string) (Doc, error) { return document.Open(path) },
        docs:    make(map[string]Doc),
    }
}

func (o *Orchestrator) RegisterRoutes(mux *http.ServeMux) {
    mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); _, _ = w.Write([]byte("ok")) })
    mux.HandleFunc("/api/load", o.handleLoad)
    mux.HandleFunc("/api/detect", o.handleDetect)
    mux.HandleFunc("/api/export", o.handleExport)
    mux.HandleFunc("/api/session/", o.handleSession)
    mux.HandleFunc("/api/download/", o.handleDownload)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
    var (
        loadErr  *document.LoadError
        aiReq    *detect.AIRequestError
        aiParse  *detect.AIParseError
    )
    switch {
    case errors.As(err, &loadErr):
        return http.StatusUnprocessableEntity
    case errors.Is(err, detect.ErrNoTOC):
        return http.StatusNotFound
    case errors.As(err, &aiReq), errors.As(err, &aiParse):
        return http.StatusBadGateway
    case errors.Is(err, chapter.ErrInvalidRange):
        return http.StatusBadRequest
    case errors.Is(err, session.ErrNotFound):
        return http.StatusNotFound
    default:
        return http.StatusInternalServerError
    }
}

func (o *Orchestrator) fail(w http.ResponseWriter, err error) {
    code := statusFor(err)
    if code >= 500 {
        log.Error().Err(err).Msg("request failed")
    } else {
        log.Warn().Err(err).Msg("request rejected")
    }
    writeJSON(w, code, map[string]string{"error": err.Error()})
}

// docFor returns the cached open document for a session, reopening from the
// session's local path after a restart.
func (o *Orchestrator) docFor(s *session.Session) (Doc, error) {
    o.mu.Lock()
    doc, ok := o.docs[s.ID]
    o.mu.Unlock()
    if ok {
        return doc, nil
    }

    doc, err := o.openDoc(s.LocalPath)
    if err != nil {
        return nil, err
    }
    // Another request may have opened the document while we did; keep the
    // cached handle and close ours so nothing leaks.
    o.mu.Lock()
    if existing, ok := o.docs[s.ID]; ok {
        o.mu.Unlock()
        if err := doc.Close(); err != nil {
            log.Warn().Err(err).Str("session", s.ID).Msg("failed to close duplicate document handle")
        }
        return existing, nil
    }
    o.docs[s.ID] = doc
    o.mu.Unlock()
    return doc, nil
}

func (o *Orchestrator) adoptDoc(id string, doc Doc) {
    o.mu.Lock()
    o.docs[id] = doc
    o.mu.Unlock()
}

func (o *Orchestrator) dropDoc(id string) {
    o.mu.Lock()
    doc, ok := o.docs[id]
    delete(o.docs, id)
    o.mu.Unlock()
    if ok {
        if err := doc.Close(); err != nil {
            log.Warn().Err(err).Str("session", id).Msg("failed to close document")
        }
    }
}

// Close releases every cached document handle.
func (o *Orchestrator) Close() {
    o.mu.Lock()
    docs := o.docs
    o.docs = make(map[string]Doc)
    o.mu.Unlock()
    for id, doc := range docs {
        if err := doc.Close(); err != nil {
            log.Warn().Err(err).Str("session", id).Msg("failed to close document")
        }
    }
}

// saveUpload writes a multipart upload into the upload dir and returns its
// path.
func (o *Orchestrator) saveUpload(r *http.Request) (string, error) {
    if err := r.ParseMultipartForm(64 << 20); err != nil {
        return "", fmt.Errorf("parse multipart form: %w", err)
    }
    file, header, err := r.FormFile("file")
    if err != nil {
        return "", fmt.Errorf("missing file field: %w", err)
    }
    defer file.Close()

    dir := o.deps.Conf.Web.UploadDir
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return "", err
    }
    dst := filepath.Join(dir, uuid.NewString()+"_"+filepath.Base(header.Filename))
    out, err := os.Create(dst)
    if err != nil {
        return "", err
    }
    n, err := io.Copy(out, file)
    closeErr := out.Close()
    if err == nil {
        err = closeErr
    }
    if err != nil {
        os.Remove(dst)
        return "", err
    }
    log.Info().Str("file", header.Filename).Int64("bytes", n).Str("dst", dst).Msg("received upload")
    return dst, nil
}

func (o *Orchestrator) touchSession(ctx context.Context, s *session.Session) {
    if err := o.deps.Store.Put(ctx, s); err != nil {
        log.Error().Err(err).Str("session", s.ID).Msg("failed to persist session")
    }
}

func nowUTC() time.Time { return time.Now().UTC() }
