// Package composer turns retrieved scholarship facts and conversation
// context into the agent's natural-language replies via an
// OpenAI-compatible LLM.
package composer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/openscholar/scholarship-agent/internal/config"
	"github.com/openscholar/scholarship-agent/internal/profile"
	"github.com/openscholar/scholarship-agent/internal/search"
)

// Client is the minimal subset of openai.Client the composer uses; it is
// easy to mock in tests.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Turn is one prior exchange handed to follow-up prompts.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Composer produces agent replies.
type Composer struct {
	client Client
	model  string
}

// New builds a composer against the configured OpenAI-compatible
// endpoint (Groq by default).
func New(cfg config.LLMConfig) *Composer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout()}
	return &Composer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

// NewWithClient builds a composer around an existing client, for tests.
func NewWithClient(client Client, model string) *Composer {
	return &Composer{client: client, model: model}
}

// confirmQuestion trails every results reply; the agent arms the
// pending-confirmation flow off the same text.
const confirmQuestion = "Would you like me to provide detailed application support for any of these scholarships? (Yes/No)"

// Compose synthesizes search results into structured guidance.
func (c *Composer) Compose(ctx context.Context, p profile.Profile, results []search.Result) (string, error) {
	var sb strings.Builder
	sb.WriteString("User profile:\n")
	sb.WriteString(p.SearchContext())
	sb.WriteString("\n\nSearch results:\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\nURL: %s\n%s\n\n", i+1, r.Title, r.URL, r.Snippet)
	}

	reply, err := c.chat(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: composeSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: "Based on this search data and user profile, provide comprehensive scholarship guidance:\n\n" + sb.String()},
	})
	if err != nil {
		return "", err
	}
	return reply + "\n\n" + confirmQuestion, nil
}

// FollowUp answers a free-form question after results were shown.
func (c *Composer) FollowUp(ctx context.Context, p profile.Profile, history []Turn, input string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: followUpSystemPrompt + "\n\nUser profile:\n" + p.SearchContext()},
	}
	for _, t := range history {
		role := openai.ChatMessageRoleUser
		if t.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: input})
	return c.chat(ctx, messages)
}

// ApplicationSupport produces the detailed application walkthrough.
func (c *Composer) ApplicationSupport(ctx context.Context, p profile.Profile) (string, error) {
	return c.chat(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: applicationSupportPrompt},
		{Role: openai.ChatMessageRoleUser, Content: "Student profile:\n" + p.SearchContext()},
	})
}

func (c *Composer) chat(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("composer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("composer: empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
