// Package advisor runs chat sessions about the user's transactions against an
// OpenAI-compatible chat model.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one turn of a conversation.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Request is a full conversation to continue.
type Request struct {
	System  string
	History []Message
}

// ChatModel streams a reply to a conversation.
type ChatModel interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Stream yields reply chunks. Recv returns io.EOF after the last chunk.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// OpenAIModel talks to any OpenAI-compatible chat completions endpoint.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel builds a client for baseURL. An empty baseURL means OpenAI itself.
func NewOpenAIModel(apiKey, baseURL, model string) *OpenAIModel {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIModel{client: openai.NewClientWithConfig(cfg), model: model}
}

func (m *OpenAIModel) Stream(ctx context.Context, req Request) (Stream, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, msg := range req.History {
		role := openai.ChatMessageRoleUser
		if msg.Role == RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Text})
	}

	stream, err := m.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat stream: %w", err)
	}
	return &openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("receive chat chunk: %w", err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}
