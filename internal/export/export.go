package export

import (
    "context"
    "fmt"
    "os"
    "path/filepath"
    "strings"

    "github.com/pdfcpu/pdfcpu/pkg/api"
    "github.com/rs/zerolog/log"

    "github.com/local/chaptersplit/internal/chapter"
    "github.com/local/chaptersplit/internal/config"
    "github.com/local/chaptersplit/internal/metrics"
    "github.com/local/chaptersplit/internal/storage"
)

// WriteError reports that one chapter could not be written. The batch keeps
// going; the error is carried in that chapter's Result.
type WriteError struct {
    Path string
    Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// Result is the outcome of exporting one chapter.
type Result struct {
    Boundary   chapter.Boundary `json:"boundary"`
    OutputPath string           `json:"output_path"`
    S3Key      string           `json:"s3_key,omitempty"`
    Err        error            `json:"-"`
    ErrMessage string           `json:"error,omitempty"`
}

type extractFunc func(inFile, outFile string, pages []string) error

// Exporter writes each selected chapter to its own PDF and optionally
// mirrors the files to S3.
type Exporter struct {
    conf    config.ExportConfig
    extract extractFunc
    s3      *storage.Client
}

func New(conf config.ExportConfig, s3 *storage.Client) *Exporter {
    return &Exporter{
        conf: conf,
        extract: func(in, out string, pages []string) error {
            return api.TrimFile(in, out, pages, nil)
        },
        s3: s3,
    }
}

// Export writes one PDF per boundary into outputDir (the configured default
// when empty). A failed chapter is recorded in its Result and the batch
// continues with the rest.
func (e *Exporter) Export(ctx context.Context, srcPath string, bounds []chapter.Boundary, outputDir string) ([]Result, error) {
    if outputDir == "" {
        outputDir = e.conf.OutputDir
    }
    if err := os.MkdirAll(outputDir, 0o755); err != nil {
        return nil, fmt.Errorf("create output dir %s: %w", outputDir, err)
    }

    results := make([]Result, 0, len(bounds))
    for _, b := range bounds {
        if err := ctx.Err(); err != nil {
            return results, err
        }

        name := Filename(b.Index, b.Title)
        outPath := filepath.Join(outputDir, name)
        pages := []string{fmt.Sprintf("%d-%d", b.StartPage, b.EndPage)}

        res := Result{Boundary: b, OutputPath: outPath}
        if err := e.extract(srcPath, outPath, pages); err != nil {
            res.Err = &WriteError{Path: outPath, Err: err}
            res.ErrMessage = res.Err.Error()
            res.OutputPath = ""
            metrics.IncExported("failed")
            log.Error().Err(err).Str("chapter", b.Title).Str("out", outPath).Msg("failed to export chapter")
            results = append(results, res)
            continue
        }
        metrics.IncExported("success")
        log.Info().Str("chapter", b.Title).Int("start", b.StartPage).Int("end", b.EndPage).Str("out", outPath).Msg("exported chapter")

        if e.s3 != nil && e.conf.S3Bucket != "" {
            key := name
            if p := strings.TrimSuffix(e.conf.S3Prefix, "/"); p != "" {
                key = p + "/" + name
            }
            if err := e.uploadResult(ctx, outPath, key); err != nil {
                // The local file is intact, so the chapter still counts as
                // exported. The missing mirror is surfaced in the result.
                res.ErrMessage = fmt.Sprintf("upload to S3 failed: %v", err)
                log.Warn().Err(err).Str("key", key).Msg("failed to mirror chapter to S3")
            } else {
                res.S3Key = key
            }
        }
        results = append(results, res)
    }
    return results, nil
}

func (e *Exporter) uploadResult(ctx context.Context, path, key string) error {
    f, err := os.Open(path)
    if err != nil {
        return err
    }
    defer f.Close()
    return e.s3.Upload(ctx, e.conf.S3Bucket, key, f)
}
