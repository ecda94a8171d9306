package detect

import (
    "context"
    "fmt"

    "github.com/rs/zerolog/log"

    "github.com/local/chaptersplit/internal/ai"
    "github.com/local/chaptersplit/internal/chapter"
    "github.com/local/chaptersplit/internal/config"
    "github.com/local/chaptersplit/internal/document"
    "github.com/local/chaptersplit/internal/metrics"
)

// Strategy selects how chapter boundaries are found.
type Strategy string

const (
    StrategyTOC    Strategy = "toc"
    StrategyAI     Strategy = "ai"
    StrategyManual Strategy = "manual"
)

func ParseStrategy(s string) (Strategy, error) {
    switch Strategy(s) {
    case StrategyTOC, StrategyAI, StrategyManual:
        return Strategy(s), nil
    }
    return "", fmt.Errorf("unknown detection strategy %q", s)
}

// Source is the view of an open document that detection needs.
type Source interface {
    PageCount() int
    PageText(page int) (string, error)
    MarkedText(pages []int) string
    Outline() ([]document.OutlineEntry, error)
}

// Completer abstracts the AI failover chain so tests can stub it.
type Completer interface {
    Do(ctx context.Context, system, prompt string) (ai.Response, string, string, error)
}

// Detector runs one of the three detection strategies against a document.
type Detector struct {
    AI   Completer
    Conf config.DetectConfig
}

func New(failover *ai.Failover, conf config.DetectConfig) *Detector {
    return &Detector{AI: failover, Conf: conf}
}

// Detect finds chapter boundaries with the given strategy. manualSpec is
// only consulted for StrategyManual.
func (d *Detector) Detect(ctx context.Context, src Source, strategy Strategy, manualSpec string) ([]chapter.Boundary, error) {
    var (
        bounds []chapter.Boundary
        err    error
    )
    switch strategy {
    case StrategyTOC:
        bounds, err = d.detectTOC(src)
    case StrategyAI:
        bounds, err = d.detectAI(ctx, src)
    case StrategyManual:
        bounds, err = ParseManual(manualSpec, src.PageCount())
    default:
        err = fmt.Errorf("unknown detection strategy %q", strategy)
    }

    result := "success"
    if err != nil {
        result = "error"
    }
    metrics.IncDetection(string(strategy), result)
    if err == nil {
        metrics.ObserveDetectionChapters(string(strategy), len(bounds))
        log.Info().Str("strategy", string(strategy)).Int("chapters", len(bounds)).Msg("chapter detection complete")
    }
    return bounds, err
}

func (d *Detector) detectTOC(src Source) ([]chapter.Boundary, error) {
    entries, err := src.Outline()
    if err != nil {
        return nil, fmt.Errorf("%w: %v", ErrNoTOC, err)
    }
    return FromOutline(entries, src.PageCount())
}

func (d *Detector) detectAI(ctx context.Context, src Source) ([]chapter.Boundary, error) {
    total := src.PageCount()

    all := make([]int, total)
    for i := range all {
        all[i] = i + 1
    }
    text := src.MarkedText(all)

    sampled := false
    if len(text) > d.Conf.MaxPromptChars {
        pages := samplePages(total, len(text), d.Conf.MaxPromptChars)
        log.Info().Int("total_pages", total).Int("sampled_pages", len(pages)).Int("full_chars", len(text)).Msg("document too large for one prompt, sampling pages")
        text = src.MarkedText(pages)
        sampled = true
    }

    prompt := buildPrompt(text, total, sampled)
    resp, provider, model, err := d.AI.Do(ctx, aiSystemPrompt, prompt)
    if err != nil {
        return nil, &AIRequestError{Err: err}
    }
    log.Info().Str("provider", provider).Str("model", model).Int("reply_chars", len(resp.Text)).Msg("AI detection reply received")

    return parseAIChapters(resp.Text, total)
}
