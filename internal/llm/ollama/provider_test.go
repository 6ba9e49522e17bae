package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rrens/zara-ai/internal/domain"
	"github.com/Rrens/zara-ai/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamChat_AccumulatesChunks(t *testing.T) {
	reqs := make(chan chatRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var body chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		reqs <- body

		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, c := range []string{"1. One. ", "2. Two. ", "3. Three."} {
			fmt.Fprintf(w, `{"model":"llama3.2","message":{"role":"assistant","content":%q},"done":false}`+"\n", c)
		}
		fmt.Fprintln(w, "not json")
		fmt.Fprintln(w, `{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true,"prompt_eval_count":5,"eval_count":7}`)
	}))
	defer srv.Close()

	temp := float32(0.2)
	p := NewProvider(srv.URL+"/", "")
	now := time.Now()
	reply := domain.NewModelPlaceholder(now)
	reply.IsStreaming = false
	reply.Text = "Hi!"

	var tokens []string
	res, err := p.StreamChat(context.Background(), llm.ChatRequest{
		History: []domain.Message{domain.NewUserMessage("hello", nil, now), reply},
		Message: domain.NewUserMessage("Count to three", []domain.Attachment{{Data: "AA==", MIMEType: "image/png"}}, now),
		Config:  llm.BehaviorConfig{SystemInstruction: "You are Zara.", Temperature: &temp},
	}, func(text string) { tokens = append(tokens, text) })
	require.NoError(t, err)

	assert.Equal(t, "1. One. 2. Two. 3. Three.", res.Text)
	assert.Equal(t, 12, res.TokensUsed)
	assert.Equal(t, "llama3.2", res.Model)
	assert.Equal(t, []string{"1. One. ", "1. One. 2. Two. ", "1. One. 2. Two. 3. Three."}, tokens)

	got := <-reqs
	assert.True(t, got.Stream)
	assert.Equal(t, "llama3.2", got.Model)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "assistant", got.Messages[2].Role)
	assert.Equal(t, []string{"AA=="}, got.Messages[3].Images)
	assert.InDelta(t, 0.2, got.Options["temperature"], 0.001)
}

func TestStreamChat_StreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"error":"model 'nope' not found"}`)
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, "nope")
	_, err := p.StreamChat(context.Background(), llm.ChatRequest{Message: domain.NewUserMessage("hi", nil, time.Now())}, nil)
	assert.ErrorContains(t, err, "not found")
}

func TestStreamChat_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, "")
	_, err := p.StreamChat(context.Background(), llm.ChatRequest{Message: domain.NewUserMessage("hi", nil, time.Now())}, nil)
	assert.ErrorContains(t, err, "status 503")
}

func TestStreamChat_NotConfigured(t *testing.T) {
	p := NewProvider("", "")
	_, err := p.StreamChat(context.Background(), llm.ChatRequest{}, nil)
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}

func TestGenerateStructured_SendsSchema(t *testing.T) {
	reqs := make(chan chatRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		reqs <- body
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"[{\"front\":\"Q\",\"back\":\"A\"}]"},"done":true}`)
	}))
	defer srv.Close()

	schema := llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"front": {Type: llm.TypeString},
		"back":  {Type: llm.TypeString},
	}))

	p := NewProvider(srv.URL, "")
	raw, err := p.GenerateStructured(context.Background(), llm.StructuredRequest{Prompt: "cards", Schema: schema})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"front":"Q","back":"A"}]`, string(raw))

	got := <-reqs
	assert.False(t, got.Stream)
	var sent llm.Schema
	require.NoError(t, json.Unmarshal(got.Format, &sent))
	assert.Equal(t, llm.TypeArray, sent.Type)
	assert.Equal(t, []string{"back", "front"}, sent.Items.Required)
}

func TestGenerateStructured_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"sure, here you go"},"done":true}`)
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, "")
	_, err := p.GenerateStructured(context.Background(), llm.StructuredRequest{Prompt: "cards"})
	assert.Error(t, err)
}
