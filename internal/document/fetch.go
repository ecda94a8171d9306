package document

import (
    "context"
    "fmt"
    "io"
    "net/http"
    "os"
    "strings"

    "github.com/rs/zerolog/log"

    "github.com/local/chaptersplit/internal/storage"
)

// Fetcher resolves a source reference (local path, file://, http(s)://, or
// s3://bucket/key) to a local file ready for opening. Remote sources land in
// a temp file the caller owns.
type Fetcher struct {
    HTTP *http.Client
    S3   *storage.Client
}

// Scheme classifies a source reference for logging and metrics labels.
func Scheme(ref string) string {
    switch {
    case strings.HasPrefix(ref, "s3://"):
        return "s3"
    case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
        return "http"
    case strings.HasPrefix(ref, "file://"):
        return "file"
    default:
        return "local"
    }
}

// Fetch returns a local path for ref. temp reports whether the path is a
// temp file the caller should remove when the session ends.
func (f *Fetcher) Fetch(ctx context.Context, ref, password string) (localPath string, temp bool, err error) {
    switch Scheme(ref) {
    case "s3":
        path, err := f.fetchS3(ctx, ref, password)
        return path, true, err
    case "http":
        path, err := f.fetchHTTP(ctx, ref)
        return path, true, err
    case "file":
        return strings.TrimPrefix(ref, "file://"), false, nil
    default:
        if _, statErr := os.Stat(ref); statErr != nil {
            return "", false, &LoadError{Path: ref, Err: statErr}
        }
        return ref, false, nil
    }
}

func (f *Fetcher) fetchHTTP(ctx context.Context, url string) (string, error) {
    client := f.HTTP
    if client == nil {
        client = http.DefaultClient
    }

    req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
    if err != nil {
        return "", &LoadError{Path: url, Err: err}
    }
    resp, err := client.Do(req)
    if err != nil {
        return "", &LoadError{Path: url, Err: err}
    }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        return "", &LoadError{Path: url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
    }

    tmp, err := os.CreateTemp("", "chaptersplit-*.pdf")
    if err != nil {
        return "", err
    }
    n, err := io.Copy(tmp, resp.Body)
    closeErr := tmp.Close()
    if err == nil {
        err = closeErr
    }
    if err != nil {
        os.Remove(tmp.Name())
        return "", &LoadError{Path: url, Err: err}
    }

    log.Info().Str("url", url).Int64("bytes", n).Str("tmp", tmp.Name()).Msg("downloaded source over HTTP")
    return tmp.Name(), nil
}

func (f *Fetcher) fetchS3(ctx context.Context, ref, password string) (string, error) {
    if f.S3 == nil {
        return "", &LoadError{Path: ref, Err: fmt.Errorf("no S3 client configured")}
    }

    rest := strings.TrimPrefix(ref, "s3://")
    bucket, key, ok := strings.Cut(rest, "/")
    if !ok || bucket == "" || key == "" {
        return "", &LoadError{Path: ref, Err: fmt.Errorf("malformed S3 reference, want s3://bucket/key")}
    }

    data, err := f.S3.Download(ctx, bucket, key, password)
    if err != nil {
        return "", &LoadError{Path: ref, Err: err}
    }

    tmp, err := os.CreateTemp("", "chaptersplit-*.pdf")
    if err != nil {
        return "", err
    }
    if _, err := tmp.Write(data); err != nil {
        tmp.Close()
        os.Remove(tmp.Name())
        return "", &LoadError{Path: ref, Err: err}
    }
    if err := tmp.Close(); err != nil {
        os.Remove(tmp.Name())
        return "", &LoadError{Path: ref, Err: err}
    }
    return tmp.Name(), nil
}
