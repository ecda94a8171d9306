package filetype

import (
    "fmt"
    "strings"

    "github.com/gabriel-vasile/mimetype"
    "github.com/rs/zerolog/log"
)

// Info describes a detected file type.
type Info struct {
    MIMEType    string
    Extension   string
    IsPDF       bool
    Description string
}

// Detect identifies the actual file type from magic bytes, not the filename.
// Renamed .txt files and HTML error pages saved as "book.pdf" are the usual
// offenders.
func Detect(filePath string) (*Info, error) {
    mtype, err := mimetype.DetectFile(filePath)
    if err != nil {
        return nil, fmt.Errorf("failed to detect file type: %w", err)
    }

    info := &Info{
        MIMEType:  mtype.String(),
        Extension: mtype.Extension(),
    }
    log.Debug().Str("mime", info.MIMEType).Str("ext", info.Extension).Str("file", filePath).Msg("detected file type")

    switch {
    case info.MIMEType == "application/pdf":
        info.IsPDF = true
        info.Description = "PDF document"
    case strings.HasPrefix(info.MIMEType, "text/"):
        info.Description = "plain text file"
    case strings.HasPrefix(info.MIMEType, "image/"):
        info.Description = "image file"
    default:
        info.Description = info.MIMEType
    }
    return info, nil
}
