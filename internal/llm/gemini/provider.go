package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/zara-ai/internal/config"
	"github.com/Rrens/zara-ai/internal/domain"
	"github.com/Rrens/zara-ai/internal/llm"
	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type Provider struct {
	apiKey string
	model  string
}

func NewProvider(cfg config.GeminiConfig) *Provider {
	return &Provider{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) AvailableModels() []string {
	return []string{
		"gemini-2.5-flash",
		"gemini-2.5-pro",
		"gemini-2.0-flash",
		"gemini-1.5-flash",
		"gemini-1.5-pro",
	}
}

func (p *Provider) DefaultModel() string {
	if p.model != "" {
		return p.model
	}
	return "gemini-2.5-flash"
}

func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

func (p *Provider) newModel(ctx context.Context, cfg llm.BehaviorConfig) (*genai.Client, *genai.GenerativeModel, string, error) {
	if !p.IsConfigured() {
		return nil, nil, "", fmt.Errorf("gemini: %w", llm.ErrNotConfigured)
	}

	name := cfg.Model
	if name == "" {
		name = p.DefaultModel()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(name)
	applyBehavior(model, cfg)
	return client, model, name, nil
}

func applyBehavior(model *genai.GenerativeModel, cfg llm.BehaviorConfig) {
	if cfg.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(cfg.SystemInstruction)}}
	}
	if cfg.Temperature != nil {
		model.SetTemperature(*cfg.Temperature)
	}
}

// StreamChat sends the new message on top of history and reports the
// cumulative text after every streamed chunk.
func (p *Provider) StreamChat(ctx context.Context, req llm.ChatRequest, onToken llm.TokenFunc) (*llm.ChatResult, error) {
	client, model, name, err := p.newModel(ctx, req.Config)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	parts, err := toParts(req.Message)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("gemini: message has no content")
	}

	cs := model.StartChat()
	cs.History, err = toContents(llm.ConversationHistory(req.History))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	iter := cs.SendMessageStream(ctx, parts...)

	var text strings.Builder
	var sources []domain.Source
	seen := make(map[string]bool)
	tokensUsed := 0

	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gemini stream error: %w", err)
		}

		if resp.UsageMetadata != nil {
			tokensUsed = int(resp.UsageMetadata.TotalTokenCount)
		}
		if len(resp.Candidates) == 0 {
			continue
		}

		cand := resp.Candidates[0]
		chunk := candidateText(cand)
		sources = appendCitations(sources, seen, cand.CitationMetadata)
		if chunk == "" {
			continue
		}
		text.WriteString(chunk)
		if onToken != nil {
			onToken(text.String())
		}
	}

	latency := time.Since(start).Milliseconds()
	log.Debug().
		Str("model", name).
		Int("tokens", tokensUsed).
		Int64("latency_ms", latency).
		Msg("gemini stream complete")

	return &llm.ChatResult{
		Text:       text.String(),
		Sources:    sources,
		Model:      name,
		TokensUsed: tokensUsed,
		LatencyMs:  latency,
	}, nil
}

// GenerateStructured asks for JSON output constrained by req.Schema
func (p *Provider) GenerateStructured(ctx context.Context, req llm.StructuredRequest) (json.RawMessage, error) {
	client, model, name, err := p.newModel(ctx, req.Config)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	model.ResponseMIMEType = "application/json"
	if req.Schema != nil {
		model.ResponseSchema = toSchema(req.Schema)
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, llm.ErrEmptyResponse
	}
	output := strings.TrimSpace(candidateText(resp.Candidates[0]))
	if output == "" {
		return nil, llm.ErrEmptyResponse
	}
	if !json.Valid([]byte(output)) {
		return nil, fmt.Errorf("gemini returned invalid JSON")
	}

	log.Debug().
		Str("model", name).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Msg("gemini structured generation complete")

	return json.RawMessage(output), nil
}

func candidateText(cand *genai.Candidate) string {
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

func appendCitations(sources []domain.Source, seen map[string]bool, meta *genai.CitationMetadata) []domain.Source {
	if meta == nil {
		return sources
	}
	for _, cs := range meta.CitationSources {
		if cs == nil || cs.URI == nil || *cs.URI == "" {
			continue
		}
		uri := *cs.URI
		if seen[uri] {
			continue
		}
		seen[uri] = true
		title := cs.License
		if title == "" {
			title = uri
		}
		sources = append(sources, domain.Source{Title: title, URI: uri})
	}
	return sources
}

// toParts converts a message to request parts: text first, then attachments
func toParts(m domain.Message) ([]genai.Part, error) {
	var parts []genai.Part
	if strings.TrimSpace(m.Text) != "" {
		parts = append(parts, genai.Text(m.Text))
	}
	for _, a := range m.Attachments {
		data, err := base64.StdEncoding.DecodeString(stripDataURL(a.Data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s attachment: %w", a.MIMEType, err)
		}
		parts = append(parts, genai.Blob{MIMEType: a.MIMEType, Data: data})
	}
	return parts, nil
}

func toContents(msgs []domain.Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		parts, err := toParts(m)
		if err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			continue
		}
		role := "user"
		if m.Role == domain.RoleModel {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents, nil
}

// stripDataURL accepts both raw base64 and "data:<mime>;base64,<data>"
func stripDataURL(s string) string {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}

func toSchema(s *llm.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        toType(s.Type),
		Description: s.Description,
		Enum:        s.Enum,
		Items:       toSchema(s.Items),
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toSchema(prop)
		}
	}
	return out
}

func toType(t llm.SchemaType) genai.Type {
	switch t {
	case llm.TypeString:
		return genai.TypeString
	case llm.TypeNumber:
		return genai.TypeNumber
	case llm.TypeInteger:
		return genai.TypeInteger
	case llm.TypeBoolean:
		return genai.TypeBoolean
	case llm.TypeArray:
		return genai.TypeArray
	case llm.TypeObject:
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}
