package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"enton/internal/config"
	"enton/internal/logging"
)

// ErrMissingAPIKey is returned by endpoints that require a key but have none.
var ErrMissingAPIKey = errors.New("API key not configured")

// OpenAI talks to an OpenAI-compatible HTTP API. One client serves chat,
// vision, transcription and speech for the endpoint.
type OpenAI struct {
	id          string
	baseURL     string
	apiKey      string
	requiresKey bool
	model       string
	visionModel string
	sttModel    string
	ttsModel    string
	ttsVoice    string
	timeout     time.Duration

	httpClient *http.Client
	limiter    *rate.Limiter
	gpu        Locker
}

// Locker serializes access to a shared local accelerator.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// WithGPU makes every request hold l. Used for endpoints served on this host.
func (c *OpenAI) WithGPU(l Locker) *OpenAI {
	c.gpu = l
	return c
}

// NewOpenAI creates a client for the endpoint registered under id.
func NewOpenAI(id string, cfg config.EndpointConfig) *OpenAI {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	vision := cfg.VisionModel
	if vision == "" {
		vision = cfg.Model
	}
	return &OpenAI{
		id:          id,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		requiresKey: cfg.RequiresKey,
		model:       cfg.Model,
		visionModel: vision,
		sttModel:    cfg.STTModel,
		ttsModel:    cfg.TTSModel,
		ttsVoice:    cfg.TTSVoice,
		timeout:     cfg.GetTimeout(),
		httpClient:  &http.Client{},
		limiter:     rate.NewLimiter(limit, 1),
	}
}

// ID returns the endpoint id.
func (c *OpenAI) ID() string { return c.id }

// CanTranscribe reports whether an STT model is configured.
func (c *OpenAI) CanTranscribe() bool { return c.sttModel != "" }

// CanSynthesize reports whether a TTS model is configured.
func (c *OpenAI) CanSynthesize() bool { return c.ttsModel != "" }

// Generate sends prompt after the system message and history.
func (c *OpenAI) Generate(ctx context.Context, prompt, system string, history []Message) (string, error) {
	msgs := append(append([]Message(nil), history...), Message{Role: RoleUser, Content: prompt})
	resp, err := c.GenerateWithTools(ctx, msgs, system, nil)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// GenerateWithTools sends messages with tool definitions attached.
func (c *OpenAI) GenerateWithTools(ctx context.Context, messages []Message, system string, tools []ToolDefinition) (Response, error) {
	msgs, err := toOpenAIMessages(system, messages)
	if err != nil {
		return Response{}, err
	}
	req := openAIRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   2048,
		Temperature: 0.7,
	}
	if len(tools) > 0 {
		req.Tools = toOpenAITools(tools)
		req.ToolChoice = "auto"
	}

	out, err := c.chat(ctx, req)
	if err != nil {
		return Response{}, err
	}
	calls, err := fromOpenAIToolCalls(out.ToolCalls)
	if err != nil {
		return Response{}, err
	}
	return Response{Text: out.Content, ToolCalls: calls}, nil
}

// GenerateWithImage asks the vision model about an image sent as a data URL.
func (c *OpenAI) GenerateWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	url := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	req := openAIRequest{
		Model: c.visionModel,
		Messages: []openAIMessage{{
			Role: "user",
			Content: []openAIContentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &openAIImageURL{URL: url}},
			},
		}},
		MaxTokens: 1024,
	}
	out, err := c.chat(ctx, req)
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

type chatResult struct {
	Content   string
	ToolCalls []openAIToolCall
}

func (c *OpenAI) chat(ctx context.Context, reqBody openAIRequest) (chatResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	logging.ProvidersDebug("[%s] chat: model=%s messages=%d tools=%d", c.id, reqBody.Model, len(reqBody.Messages), len(reqBody.Tools))

	body, err := json.Marshal(reqBody)
	if err != nil {
		return chatResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	data, err := c.post(ctx, "/chat/completions", "application/json", bytes.NewReader(body))
	if err != nil {
		logging.ProvidersWarn("[%s] chat failed after %v: %v", c.id, time.Since(start), err)
		return chatResult{}, err
	}

	var resp openAIResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return chatResult{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return chatResult{}, fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return chatResult{}, fmt.Errorf("no completion returned")
	}

	msg := resp.Choices[0].Message
	logging.ProvidersDebug("[%s] chat: completed in %v response_len=%d tool_calls=%d", c.id, time.Since(start), len(msg.Content), len(msg.ToolCalls))
	return chatResult{Content: strings.TrimSpace(msg.Content), ToolCalls: msg.ToolCalls}, nil
}

// Transcribe uploads audio as WAV to /audio/transcriptions.
func (c *OpenAI) Transcribe(ctx context.Context, audio Audio) (string, error) {
	if c.sttModel == "" {
		return "", fmt.Errorf("%s: no transcription model configured", c.id)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("model", c.sttModel); err != nil {
		return "", err
	}
	part, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(EncodeWAV(audio)); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	data, err := c.post(ctx, "/audio/transcriptions", w.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}
	var out openAITranscription
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to unmarshal transcription: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}

// Synthesize requests WAV speech from /audio/speech.
func (c *OpenAI) Synthesize(ctx context.Context, text string) (Audio, error) {
	if c.ttsModel == "" {
		return Audio{}, fmt.Errorf("%s: no speech model configured", c.id)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	body, err := json.Marshal(openAISpeechRequest{
		Model:          c.ttsModel,
		Input:          text,
		Voice:          c.ttsVoice,
		ResponseFormat: "wav",
	})
	if err != nil {
		return Audio{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	data, err := c.post(ctx, "/audio/speech", "application/json", bytes.NewReader(body))
	if err != nil {
		return Audio{}, err
	}
	return DecodeWAV(data)
}

// withTimeout applies the endpoint timeout when ctx has no deadline.
func (c *OpenAI) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *OpenAI) post(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	if c.requiresKey && c.apiKey == "" {
		return nil, fmt.Errorf("%s: %w", c.id, ErrMissingAPIKey)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	if c.gpu != nil {
		release, err := c.gpu.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("gpu lock: %w", err)
		}
		defer release()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limit exceeded (429): %s", strings.TrimSpace(string(data)))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
