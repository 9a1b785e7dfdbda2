package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/wikicite/internal/model"
	"github.com/ppiankov/wikicite/internal/util"
)

const (
	publicAIBaseURL = "https://api.publicai.co/v1"
	publicAIModel   = "swiss-ai/apertus-8b-instruct"
)

// OpenAIProvider judges claims through the Chat Completions API. It also
// serves OpenAI-compatible endpoints such as Public AI.
type OpenAIProvider struct {
	client       *openai.Client
	config       Config
	name         string
	defaultModel string
	topP         float32
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	return newOpenAICompatible("openai", openai.GPT4oMini, config, 0)
}

// NewPublicAIProvider creates a provider for the Public AI inference API
func NewPublicAIProvider(config Config) (*OpenAIProvider, error) {
	if config.BaseURL == "" {
		config.BaseURL = publicAIBaseURL
	}
	if config.Temperature == 0 {
		config.Temperature = 0.8
	}
	return newOpenAICompatible("publicai", publicAIModel, config, 0.9)
}

func newOpenAICompatible(name, defaultModel string, config Config, topP float32) (*OpenAIProvider, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrMissingAPIKey)
	}

	clientConfig := openai.DefaultConfig(strings.TrimSpace(config.APIKey))
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	}
	clientConfig.HTTPClient = util.NewHTTPClient(util.ClientOptions{
		Timeout:    time.Duration(config.Timeout) * time.Second,
		HTTPProxy:  config.HTTPProxy,
		HTTPSProxy: config.HTTPSProxy,
		NoProxy:    config.NoProxy,
	})

	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(clientConfig),
		config:       config,
		name:         name,
		defaultModel: defaultModel,
		topP:         topP,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s API check failed: %v\n", p.name, err)
		return false
	}
	return true
}

// Judge asks the model to rate the claim against the source
func (p *OpenAIProvider) Judge(ctx context.Context, req JudgeRequest) (*model.Verdict, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = p.config.Model
	}
	if modelName == "" {
		modelName = p.defaultModel
	}

	maxTokens := p.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	timeout := time.Duration(p.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(req.Claim, req.SourceText),
			},
		},
		MaxTokens:   maxTokens,
		Temperature: float32(p.config.Temperature),
		TopP:        p.topP,
	}

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, classifyStatus(p.name, apiErr.HTTPStatusCode, err)
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return nil, classifyStatus(p.name, reqErr.HTTPStatusCode, err)
		}
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: %w", p.name, ErrEmptyResponse)
	}

	return ParseVerdict(resp.Choices[0].Message.Content)
}
