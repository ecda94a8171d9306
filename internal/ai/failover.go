package ai

import (
    "context"
    "fmt"
    "time"

    "github.com/rs/zerolog/log"

    "github.com/local/chaptersplit/internal/config"
    "github.com/local/chaptersplit/internal/metrics"
)

// Failover routes a completion request across the configured providers and
// models: primary provider primary model, primary provider secondary model,
// then the same pair on the secondary provider. A circuit breaker skips
// provider/model pairs that are cooling down.
type Failover struct {
    clients map[string]Client
    conf    config.ProvidersConfig
    timeout time.Duration
    breaker *Breaker
}

// DefaultClients returns the real provider clients keyed by name.
func DefaultClients() map[string]Client {
    return map[string]Client{
        "gemini":    NewGeminiClient(),
        "openai":    NewOpenAIClient(),
        "anthropic": NewAnthropicClient(),
    }
}

func NewFailover(conf config.ProvidersConfig, det config.DetectConfig, clients map[string]Client) *Failover {
    if clients == nil {
        clients = DefaultClients()
    }
    return &Failover{
        clients: clients,
        conf:    conf,
        timeout: det.RequestTimeout,
        breaker: NewBreaker(det.BreakerBaseBackoff, det.BreakerMaxBackoff),
    }
}

func (f *Failover) models(provider string) config.ProviderModels {
    switch provider {
    case "openai":
        return f.conf.OpenAI
    case "anthropic":
        return f.conf.Anthropic
    case "gemini":
        return f.conf.Gemini
    }
    return config.ProviderModels{}
}

type attempt struct {
    provider string
    model    string
}

// Do sends the prompt through the failover chain and returns the first
// successful response along with the provider/model that produced it.
func (f *Failover) Do(ctx context.Context, system, prompt string) (Response, string, string, error) {
    primary := f.conf.PrimaryEngine
    secondary := f.conf.SecondaryEngine

    var attempts []attempt
    for _, prov := range []string{primary, secondary} {
        m := f.models(prov)
        if m.Primary != "" {
            attempts = append(attempts, attempt{prov, m.Primary})
        }
        if m.Secondary != "" && m.Secondary != m.Primary {
            attempts = append(attempts, attempt{prov, m.Secondary})
        }
    }

    var lastErr error
    for i, at := range attempts {
        client, ok := f.clients[at.provider]
        if !ok {
            log.Warn().Str("provider", at.provider).Msg("unknown AI provider in failover chain")
            continue
        }
        if f.breaker.IsOpen(at.provider, at.model) {
            log.Debug().Str("provider", at.provider).Str("model", at.model).Msg("circuit breaker open, skipping attempt")
            continue
        }

        log.Info().
            Str("provider", at.provider).
            Str("model", at.model).
            Msgf("attempting AI detection [%d/%d]", i+1, len(attempts))

        resp, err := f.call(ctx, client, at.model, system, prompt)
        if err == nil {
            f.breaker.Close(at.provider, at.model)
            metrics.BreakerClosed(at.provider, at.model)
            return resp, at.provider, at.model, nil
        }
        lastErr = err

        if IsFatal(err) {
            log.Error().Err(err).Str("provider", at.provider).Str("model", at.model).Msg("fatal provider error, aborting failover")
            return Response{}, "", "", err
        }
        if IsTransient(err) {
            f.breaker.Open(at.provider, at.model)
            metrics.BreakerOpened(at.provider, at.model)
        }
        log.Warn().Err(err).Str("provider", at.provider).Str("model", at.model).Msg("provider attempt failed, trying next")
    }

    if lastErr == nil {
        lastErr = fmt.Errorf("no AI providers configured")
    }
    log.Error().Err(lastErr).Msg("all AI providers/models exhausted")
    return Response{}, "", "", lastErr
}

func (f *Failover) call(ctx context.Context, client Client, model, system, prompt string) (Response, error) {
    req := Request{
        SystemPrompt: system,
        Prompt:       prompt,
        Model:        model,
        MaxTokens:    8192,
        Timeout:      f.timeout,
    }

    // Fresh timeout per attempt so an expired deadline from a previous
    // attempt cannot leak into this one.
    cctx, cancel := context.WithTimeout(ctx, f.timeout)
    defer cancel()

    start := time.Now()
    resp, err := client.Do(cctx, req)
    dur := time.Since(start)

    result := "success"
    if err != nil {
        switch {
        case cctx.Err() == context.DeadlineExceeded:
            result = "timeout"
        case IsRateLimited(err):
            result = "rate_limited"
        case IsTransient(err):
            result = "transient"
        case IsFatal(err):
            result = "fatal"
        default:
            result = "unknown"
        }
    }
    metrics.ObserveProvider(client.Name(), model, result, dur)

    if err != nil {
        return Response{}, err
    }
    log.Debug().
        Str("provider", client.Name()).
        Str("model", model).
        Dur("duration", dur).
        Int("tokens_in", resp.TokensIn).
        Int("tokens_out", resp.TokensOut).
        Msg("AI provider call success")
    return resp, nil
}
