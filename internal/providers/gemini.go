package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"enton/internal/config"
	"enton/internal/logging"
)

// GeminiID is the provider id of the Gemini backend.
const GeminiID = "gemini"

// Gemini generates text through the Google GenAI SDK.
type Gemini struct {
	client      *genai.Client
	model       string
	visionModel string
}

// NewGemini creates a Gemini provider. It fails when no API key is set.
func NewGemini(ctx context.Context, cfg config.GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	vision := cfg.VisionModel
	if vision == "" {
		vision = model
	}
	return &Gemini{client: client, model: model, visionModel: vision}, nil
}

func (g *Gemini) ID() string { return GeminiID }

func (g *Gemini) Generate(ctx context.Context, prompt, system string, history []Message) (string, error) {
	msgs := append(append([]Message(nil), history...), Message{Role: RoleUser, Content: prompt})
	resp, err := g.GenerateWithTools(ctx, msgs, system, nil)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (g *Gemini) GenerateWithTools(ctx context.Context, messages []Message, system string, tools []ToolDefinition) (Response, error) {
	start := time.Now()
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(tools))
		for i, t := range tools {
			decls[i] = &genai.FunctionDeclaration{
				Name:                 t.Name,
				Description:          t.Description,
				ParametersJsonSchema: t.Parameters,
			}
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, toGeminiContents(messages), cfg)
	if err != nil {
		logging.ProvidersWarn("[gemini] generate failed after %v: %v", time.Since(start), err)
		return Response{}, fmt.Errorf("gemini generate: %w", err)
	}

	out := Response{Text: strings.TrimSpace(resp.Text())}
	for _, fc := range resp.FunctionCalls() {
		id := fc.ID
		if id == "" {
			id = uuid.NewString()
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: id, Name: fc.Name, Input: fc.Args})
	}
	logging.ProvidersDebug("[gemini] generate: completed in %v response_len=%d tool_calls=%d", time.Since(start), len(out.Text), len(out.ToolCalls))
	return out, nil
}

func (g *Gemini) GenerateWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(image, mimeType),
	}, genai.RoleUser)

	resp, err := g.client.Models.GenerateContent(ctx, g.visionModel, []*genai.Content{content}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini vision: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// toGeminiContents maps conversation turns onto genai contents. Tool turns
// become function responses and assistant tool requests function calls.
func toGeminiContents(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleAssistant:
			parts := []*genai.Part{}
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, genai.NewPartFromFunctionCall(tc.Name, tc.Input))
			}
			out = append(out, genai.NewContentFromParts(parts, genai.RoleModel))
		case RoleTool:
			part := genai.NewPartFromFunctionResponse(m.Name, map[string]any{"output": m.Content})
			out = append(out, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		default:
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return out
}
