package ai

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "os"
)

type GeminiClient struct {
    http   *http.Client
    apiKey string
}

func NewGeminiClient() *GeminiClient {
    return &GeminiClient{http: &http.Client{}, apiKey: os.Getenv("GOOGLE_API_KEY")}
}
func (c *GeminiClient) Name() string { return "gemini" }

type geminiPart struct {
    Text string `json:"text"`
}

type geminiContent struct {
    Role  string       `json:"role,omitempty"`
    Parts []geminiPart `json:"parts"`
}

type geminiGenReq struct {
    SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
    Contents          []geminiContent `json:"contents"`
    GenerationConfig  struct {
        Temperature float64 `json:"temperature"`
        TopP        float64 `json:"topP"`
        TopK        int     `json:"topK"`
    } `json:"generationConfig"`
}

type geminiGenResp struct {
    Candidates []struct {
        Content struct {
            Parts []geminiPart `json:"parts"`
        } `json:"content"`
        FinishReason string `json:"finishReason"`
    } `json:"candidates"`
    UsageMetadata struct {
        PromptTokenCount     int `json:"promptTokenCount"`
        CandidatesTokenCount int `json:"candidatesTokenCount"`
    } `json:"usageMetadata"`
}

func (c *GeminiClient) Do(ctx context.Context, req Request) (Response, error) {
    if c.apiKey == "" {
        return Response{}, errors.New("missing GOOGLE_API_KEY")
    }

    payload := geminiGenReq{
        Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
    }
    if req.SystemPrompt != "" {
        payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
    }
    // Low temperature keeps boundary output deterministic.
    payload.GenerationConfig.Temperature = 0.2
    payload.GenerationConfig.TopP = 1
    payload.GenerationConfig.TopK = 1

    body, _ := json.Marshal(payload)
    url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", req.Model)
    httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
    httpReq.Header.Set("x-goog-api-key", c.apiKey)
    httpReq.Header.Set("Content-Type", "application/json")

    resp, err := c.http.Do(httpReq)
    if err != nil {
        return Response{}, err
    }
    defer resp.Body.Close()

    if resp.StatusCode == 429 {
        return Response{}, ErrRateLimited
    }
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
        return Response{}, &HTTPError{StatusCode: resp.StatusCode, Body: string(b), Provider: "gemini"}
    }

    var r geminiGenResp
    if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
        return Response{}, err
    }
    if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
        return Response{}, errors.New("empty response")
    }

    var text string
    for _, p := range r.Candidates[0].Content.Parts {
        text += p.Text
    }

    return Response{
        Text:      text,
        TokensIn:  r.UsageMetadata.PromptTokenCount,
        TokensOut: r.UsageMetadata.CandidatesTokenCount,
    }, nil
}
