package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Rrens/zara-ai/internal/domain"
	"github.com/Rrens/zara-ai/internal/llm"
	"github.com/rs/zerolog/log"
)

const maxLineSize = 1 << 20

// Provider implements llm.Provider for Ollama
type Provider struct {
	host         string
	defaultModel string
	client       *http.Client
}

// NewProvider creates a new Ollama provider
func NewProvider(host, defaultModel string) *Provider {
	if defaultModel == "" {
		defaultModel = "llama3.2"
	}
	return &Provider{
		host:         strings.TrimRight(host, "/"),
		defaultModel: defaultModel,
		// no client timeout: streams are bounded by the request context
		client: &http.Client{},
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "ollama"
}

// AvailableModels returns list of supported models
func (p *Provider) AvailableModels() []string {
	return []string{
		"llama3.2",
		"llama3.1",
		"gemma3",
		"mistral",
		"qwen2.5",
		"phi3",
	}
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

// IsConfigured checks if provider has a host
func (p *Provider) IsConfigured() bool {
	return p.host != ""
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string          `json:"model"`
	Messages []chatMessage   `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   json.RawMessage `json:"format,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
}

type chatChunk struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error"`
}

// StreamChat posts to /api/chat with streaming enabled and accumulates the
// newline-delimited JSON chunks.
func (p *Provider) StreamChat(ctx context.Context, req llm.ChatRequest, onToken llm.TokenFunc) (*llm.ChatResult, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("ollama: %w", llm.ErrNotConfigured)
	}

	model := req.Config.Model
	if model == "" {
		model = p.defaultModel
	}

	body := chatRequest{
		Model:    model,
		Messages: buildMessages(req),
		Stream:   true,
		Options:  options(req.Config),
	}

	start := time.Now()
	resp, err := p.post(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var text strings.Builder
	tokens := 0
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			log.Debug().Err(err).Msg("skipping malformed ollama chunk")
			continue
		}
		if chunk.Error != "" {
			return nil, fmt.Errorf("ollama stream error: %s", chunk.Error)
		}

		if chunk.Message.Content != "" {
			text.WriteString(chunk.Message.Content)
			if onToken != nil {
				onToken(text.String())
			}
		}
		if chunk.Done {
			tokens = chunk.PromptEvalCount + chunk.EvalCount
			break
		}
	}
	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to read ollama stream: %w", err)
	}

	return &llm.ChatResult{
		Text:       text.String(),
		Model:      model,
		TokensUsed: tokens,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// GenerateStructured uses Ollama's format field to constrain output to the schema
func (p *Provider) GenerateStructured(ctx context.Context, req llm.StructuredRequest) (json.RawMessage, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("ollama: %w", llm.ErrNotConfigured)
	}

	model := req.Config.Model
	if model == "" {
		model = p.defaultModel
	}

	format := json.RawMessage(`"json"`)
	if req.Schema != nil {
		encoded, err := json.Marshal(req.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema: %w", err)
		}
		format = encoded
	}

	var msgs []chatMessage
	if req.Config.SystemInstruction != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.Config.SystemInstruction})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Prompt})

	resp, err := p.post(ctx, chatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   false,
		Format:   format,
		Options:  options(req.Config),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var chunk chatChunk
	if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if chunk.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", chunk.Error)
	}

	out := strings.TrimSpace(chunk.Message.Content)
	if out == "" {
		return nil, llm.ErrEmptyResponse
	}
	if !json.Valid([]byte(out)) {
		return nil, errors.New("ollama returned invalid JSON")
	}
	return json.RawMessage(out), nil
}

func (p *Provider) post(ctx context.Context, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

func buildMessages(req llm.ChatRequest) []chatMessage {
	var msgs []chatMessage
	if req.Config.SystemInstruction != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.Config.SystemInstruction})
	}
	for _, m := range llm.ConversationHistory(req.History) {
		msgs = append(msgs, toChatMessage(m))
	}
	return append(msgs, toChatMessage(req.Message))
}

func toChatMessage(m domain.Message) chatMessage {
	cm := chatMessage{Role: "user", Content: m.Text}
	if m.Role == domain.RoleModel {
		cm.Role = "assistant"
	}
	for _, a := range m.Attachments {
		if strings.HasPrefix(a.MIMEType, "image/") {
			cm.Images = append(cm.Images, a.Data)
		}
	}
	return cm
}

func options(cfg llm.BehaviorConfig) map[string]any {
	if cfg.Temperature == nil {
		return nil
	}
	return map[string]any{"temperature": *cfg.Temperature}
}
