package orchestrator

import (
    "encoding/json"
    "fmt"
    "net/http"
    "os"
    "path/filepath"
    "strings"

    "github.com/google/uuid"
    "github.com/rs/zerolog/log"

    "github.com/local/chaptersplit/internal/chapter"
    "github.com/local/chaptersplit/internal/detect"
    "github.com/local/chaptersplit/internal/document"
    "github.com/local/chaptersplit/internal/export"
    "github.com/local/chaptersplit/internal/metrics"
    "github.com/local/chaptersplit/internal/session"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(code)
    _ = json.NewEncoder(w).Encode(v)
}

type loadReq struct {
    SourceRef string `json:"source_ref"`
    Password  string `json:"password"`
}

type loadResp struct {
    SessionID string `json:"session_id"`
    SourceRef string `json:"source_ref"`
    PageCount int    `json:"page_count"`
}

// handleLoad accepts either a multipart upload (field "file") or a JSON body
// naming a source reference, opens the PDF and creates a session.
func (o *Orchestrator) handleLoad(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    defer r.Body.Close()

    var (
        sourceRef string
        localPath string
        temp      bool
        scheme    = "upload"
    )

    if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
        path, err := o.saveUpload(r)
        if err != nil {
            o.fail(w, &document.LoadError{Path: "upload", Err: err})
            metrics.IncLoaded(scheme, "error")
            return
        }
        sourceRef, localPath, temp = path, path, true
    } else {
        var req loadReq
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            http.Error(w, "invalid json", http.StatusBadRequest)
            return
        }
        if req.SourceRef == "" {
            http.Error(w, "missing source_ref", http.StatusBadRequest)
            return
        }
        sourceRef = req.SourceRef
        scheme = document.Scheme(sourceRef)

        var err error
        localPath, temp, err = o.deps.Fetcher.Fetch(r.Context(), sourceRef, req.Password)
        if err != nil {
            metrics.IncLoaded(scheme, "error")
            o.fail(w, err)
            return
        }
    }

    doc, err := o.openDoc(localPath)
    if err != nil {
        metrics.IncLoaded(scheme, "error")
        if temp {
            os.Remove(localPath)
        }
        o.fail(w, err)
        return
    }

    s := &session.Session{
        ID:        uuid.NewString(),
        SourceRef: sourceRef,
        LocalPath: localPath,
        TempFile:  temp,
        PageCount: doc.PageCount(),
        CreatedAt: nowUTC(),
    }
    o.adoptDoc(s.ID, doc)
    if err := o.deps.Store.Put(r.Context(), s); err != nil {
        o.dropDoc(s.ID)
        o.fail(w, err)
        return
    }

    metrics.IncLoaded(scheme, "success")
    log.Info().Str("session", s.ID).Str("source", sourceRef).Int("pages", s.PageCount).Msg("session created")
    writeJSON(w, http.StatusCreated, loadResp{SessionID: s.ID, SourceRef: sourceRef, PageCount: s.PageCount})
}

type detectReq struct {
    SessionID    string `json:"session_id"`
    Strategy     string `json:"strategy"`
    ManualRanges string `json:"manual_ranges,omitempty"`
}

type detectResp struct {
    SessionID string             `json:"session_id"`
    Strategy  string             `json:"strategy"`
    Chapters  []chapter.Boundary `json:"chapters"`
}

func (o *Orchestrator) handleDetect(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    defer r.Body.Close()

    var req detectReq
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "invalid json", http.StatusBadRequest)
        return
    }
    strategy, err := detect.ParseStrategy(req.Strategy)
    if err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }

    s, err := o.deps.Store.Get(r.Context(), req.SessionID)
    if err != nil {
        o.fail(w, err)
        return
    }
    doc, err := o.docFor(s)
    if err != nil {
        o.fail(w, err)
        return
    }

    bounds, err := o.deps.Detector.Detect(r.Context(), doc, strategy, req.ManualRanges)
    if err != nil {
        o.fail(w, err)
        return
    }

    s.Strategy = string(strategy)
    s.Boundaries = bounds
    o.touchSession(r.Context(), s)

    writeJSON(w, http.StatusOK, detectResp{SessionID: s.ID, Strategy: string(strategy), Chapters: bounds})
}

type exportReq struct {
    SessionID string       `json:"session_id"`
    Include   map[int]bool `json:"include,omitempty"`
    Offset    int          `json:"offset,omitempty"`
    OutputDir string       `json:"output_dir,omitempty"`
}

type exportResp struct {
    SessionID string          `json:"session_id"`
    OutputDir string          `json:"output_dir"`
    Results   []export.Result `json:"results"`
    Exported  int             `json:"exported"`
    Failed    int             `json:"failed"`
}

func (o *Orchestrator) handleExport(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    defer r.Body.Close()

    var req exportReq
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "invalid json", http.StatusBadRequest)
        return
    }

    s, err := o.deps.Store.Get(r.Context(), req.SessionID)
    if err != nil {
        o.fail(w, err)
        return
    }
    if len(s.Boundaries) == 0 {
        o.fail(w, fmt.Errorf("%w: session has no detected chapters", chapter.ErrInvalidRange))
        return
    }

    sel := chapter.Selection{Include: req.Include, Offset: req.Offset}
    selected := sel.Apply(s.Boundaries, s.PageCount)
    if len(selected) == 0 {
        o.fail(w, fmt.Errorf("%w: selection leaves no chapters to export", chapter.ErrInvalidRange))
        return
    }

    outDir := req.OutputDir
    if outDir == "" {
        outDir = filepath.Join(o.deps.Conf.Export.OutputDir, s.ID)
    }

    results, err := o.deps.Exporter.Export(r.Context(), s.LocalPath, selected, outDir)
    if err != nil {
        o.fail(w, err)
        return
    }

    resp := exportResp{SessionID: s.ID, OutputDir: outDir, Results: results}
    for _, res := range results {
        if res.Err != nil {
            resp.Failed++
        } else {
            resp.Exported++
        }
    }

    s.ExportDir = outDir
    o.touchSession(r.Context(), s)

    log.Info().Str("session", s.ID).Int("exported", resp.Exported).Int("failed", resp.Failed).Str("dir", outDir).Msg("export finished")
    writeJSON(w, http.StatusOK, resp)
}

// handleSession serves GET (inspect) and DELETE (close and forget) for
// /api/session/{id}.
func (o *Orchestrator) handleSession(w http.ResponseWriter, r *http.Request) {
    id := strings.TrimPrefix(r.URL.Path, "/api/session/")
    if id == "" || strings.Contains(id, "/") {
        http.NotFound(w, r)
        return
    }

    switch r.Method {
    case http.MethodGet:
        s, err := o.deps.Store.Get(r.Context(), id)
        if err != nil {
            o.fail(w, err)
            return
        }
        writeJSON(w, http.StatusOK, s)

    case http.MethodDelete:
        s, err := o.deps.Store.Get(r.Context(), id)
        if err != nil {
            o.fail(w, err)
            return
        }
        o.dropDoc(id)
        if s.TempFile && s.LocalPath != "" {
            if err := os.Remove(s.LocalPath); err != nil && !os.IsNotExist(err) {
                log.Warn().Err(err).Str("path", s.LocalPath).Msg("failed to remove temp file")
            }
        }
        if err := o.deps.Store.Delete(r.Context(), id); err != nil {
            o.fail(w, err)
            return
        }
        w.WriteHeader(http.StatusNoContent)

    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// handleDownload streams one exported chapter: /api/download/{id}/{filename}.
func (o *Orchestrator) handleDownload(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }

    rest := strings.TrimPrefix(r.URL.Path, "/api/download/")
    id, name, ok := strings.Cut(rest, "/")
    if !ok || id == "" || name == "" {
        http.NotFound(w, r)
        return
    }
    if name != filepath.Base(name) {
        http.Error(w, "invalid filename", http.StatusBadRequest)
        return
    }

    s, err := o.deps.Store.Get(r.Context(), id)
    if err != nil {
        o.fail(w, err)
        return
    }
    if s.ExportDir == "" {
        http.Error(w, "session has no exports", http.StatusNotFound)
        return
    }

    path := filepath.Join(s.ExportDir, name)
    if _, err := os.Stat(path); err != nil {
        http.NotFound(w, r)
        return
    }
    w.Header().Set("Content-Type", "application/pdf")
    w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
    http.ServeFile(w, r, path)
}
