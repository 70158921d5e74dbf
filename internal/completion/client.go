// Package completion requests structured JSON output from an Azure OpenAI chat
// deployment and validates it against a JSON schema.
//
// Failures are classified for the step executor: token-limit, content-filter and
// malformed-output failures are permanent, throttling and server or network failures
// are returned as plain errors and retried.
package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"

	"claim-intake-service/internal/faults"
	"claim-intake-service/internal/metrics"
)

// ChatAPI is the part of *azopenai.Client used here.
type ChatAPI interface {
	GetChatCompletions(ctx context.Context, body azopenai.ChatCompletionsOptions, options *azopenai.GetChatCompletionsOptions) (azopenai.GetChatCompletionsResponse, error)
}

// Part is one piece of user content: either text or an image data URL.
type Part struct {
	Text     string
	ImageURL string
}

func TextPart(s string) Part { return Part{Text: s} }

func ImagePart(dataURL string) Part { return Part{ImageURL: dataURL} }

type Request struct {
	Deployment string
	// Instructions are sent ahead of the parts.
	Instructions string
	Parts        []Part
	Schema       *Schema
	// MaxOutputTokens overrides the client default when positive.
	MaxOutputTokens int32
}

type Usage struct {
	PromptTokens     int32 `json:"promptTokens"`
	CompletionTokens int32 `json:"completionTokens"`
	TotalTokens      int32 `json:"totalTokens"`
}

func (u Usage) String() string {
	return fmt.Sprintf("prompt=%d completion=%d total=%d", u.PromptTokens, u.CompletionTokens, u.TotalTokens)
}

type Client struct {
	api             ChatAPI
	maxOutputTokens int32
}

// NewAzureClient connects to endpoint with an API key. SDK retries are disabled since
// retrying is the step executor's job.
func NewAzureClient(endpoint, apiKey string, maxOutputTokens int32) (*Client, error) {
	opts := &azopenai.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: -1},
		},
	}
	api, err := azopenai.NewClientWithKeyCredential(endpoint, azcore.NewKeyCredential(apiKey), opts)
	if err != nil {
		return nil, fmt.Errorf("error creating Azure OpenAI client: %w", err)
	}
	return New(api, maxOutputTokens), nil
}

func New(api ChatAPI, maxOutputTokens int32) *Client {
	return &Client{api: api, maxOutputTokens: maxOutputTokens}
}

// Complete runs req and decodes the validated JSON output into out.
func (c *Client) Complete(ctx context.Context, req Request, out interface{}) (Usage, error) {
	start := time.Now()
	usage, err := c.complete(ctx, req, out)

	schema := req.Schema.Name()
	metrics.CompletionLatency.WithLabelValues(schema).Observe(time.Since(start).Seconds())
	metrics.CompletionRequests.WithLabelValues(schema, outcome(err)).Inc()
	metrics.CompletionTokens.WithLabelValues(schema, "prompt").Add(float64(usage.PromptTokens))
	metrics.CompletionTokens.WithLabelValues(schema, "completion").Add(float64(usage.CompletionTokens))
	return usage, err
}

func (c *Client) complete(ctx context.Context, req Request, out interface{}) (Usage, error) {
	if req.Schema == nil {
		return Usage{}, faults.Permanent(faults.TypeInvalidInput, "completion request has no output schema", nil)
	}
	maxTokens := c.maxOutputTokens
	if req.MaxOutputTokens > 0 {
		maxTokens = req.MaxOutputTokens
	}

	resp, err := c.api.GetChatCompletions(ctx, azopenai.ChatCompletionsOptions{
		DeploymentName: to.Ptr(req.Deployment),
		Messages:       messages(req),
		MaxTokens:      to.Ptr(maxTokens),
	}, nil)
	if err != nil {
		return Usage{}, classify(err)
	}

	usage := usageOf(resp.Usage)
	if len(resp.Choices) == 0 {
		return usage, faults.Permanent(faults.TypeGenerationFailed, "completion returned no choices", nil)
	}
	choice := resp.Choices[0]
	if choice.FinishReason != nil {
		switch *choice.FinishReason {
		case azopenai.CompletionsFinishReasonTokenLimitReached:
			return usage, faults.Permanent(faults.TypeTokenLimit,
				fmt.Sprintf("output token limit of %d reached (%s)", maxTokens, usage), nil, usage)
		case azopenai.CompletionsFinishReasonContentFiltered:
			return usage, faults.Permanent(faults.TypeGenerationFailed, "completion stopped by content filter", nil)
		}
	}
	if choice.Message == nil || choice.Message.Content == nil {
		return usage, faults.Permanent(faults.TypeGenerationFailed, "completion returned no content", nil)
	}

	raw := []byte(stripFence(*choice.Message.Content))
	if err := req.Schema.Validate(raw); err != nil {
		return usage, faults.Permanent(faults.TypeGenerationFailed, "completion output does not match schema "+req.Schema.Name(), err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return usage, faults.Permanent(faults.TypeGenerationFailed, "decode completion output", err)
	}
	return usage, nil
}

// messages puts the instructions in a leading system message and the parts in a
// single user message.
func messages(req Request) []azopenai.ChatRequestMessageClassification {
	msgs := make([]azopenai.ChatRequestMessageClassification, 0, 2)
	if req.Instructions != "" {
		msgs = append(msgs, &azopenai.ChatRequestSystemMessage{
			Content: azopenai.NewChatRequestSystemMessageContent(req.Instructions),
		})
	}
	return append(msgs, &azopenai.ChatRequestUserMessage{
		Content: azopenai.NewChatRequestUserMessageContent(contentParts(req)),
	})
}

func contentParts(req Request) []azopenai.ChatCompletionRequestMessageContentPartClassification {
	parts := make([]azopenai.ChatCompletionRequestMessageContentPartClassification, 0, len(req.Parts)+1)
	for _, p := range req.Parts {
		if p.ImageURL != "" {
			parts = append(parts, &azopenai.ChatCompletionRequestMessageContentPartImage{
				ImageURL: &azopenai.ChatCompletionRequestMessageContentPartImageURL{URL: to.Ptr(p.ImageURL)},
			})
			continue
		}
		parts = append(parts, &azopenai.ChatCompletionRequestMessageContentPartText{Text: to.Ptr(p.Text)})
	}
	parts = append(parts, &azopenai.ChatCompletionRequestMessageContentPartText{
		Text: to.Ptr("Reply with a single JSON object that conforms to this JSON schema, and nothing else:\n" + req.Schema.Source()),
	})
	return parts
}

// classify maps a transport failure. Throttling, timeouts, server errors and network
// errors stay transient; any other HTTP status is permanent.
func classify(err error) error {
	var filtered *azopenai.ContentFilterResponseError
	if errors.As(err, &filtered) {
		return faults.Permanent(faults.TypeGenerationFailed, "prompt rejected by content filter", err)
	}
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return fmt.Errorf("completion request: %w", err)
	}
	switch code := respErr.StatusCode; {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= 500:
		return fmt.Errorf("completion request: %w", err)
	default:
		return faults.Permanent(faults.TypeGenerationFailed, fmt.Sprintf("completion request failed with status %d", code), err)
	}
}

func usageOf(u *azopenai.CompletionsUsage) Usage {
	if u == nil {
		return Usage{}
	}
	var out Usage
	if u.PromptTokens != nil {
		out.PromptTokens = *u.PromptTokens
	}
	if u.CompletionTokens != nil {
		out.CompletionTokens = *u.CompletionTokens
	}
	if u.TotalTokens != nil {
		out.TotalTokens = *u.TotalTokens
	}
	return out
}

// stripFence removes a markdown code fence some deployments wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := faults.Kind(err); kind != "" {
		return kind
	}
	return "transient"
}
