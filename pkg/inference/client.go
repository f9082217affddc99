package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkoukk/tiktoken-go"

	"github.com/textchain/textchain/config"
	"github.com/textchain/textchain/internal"
	"github.com/textchain/textchain/pkg/models"
)

const APITimeout = 90 * time.Second
const MaxAPIRequestAttempts = 5
const DefaultEndpoint = "https://api-inference.huggingface.co"

const cl100kBase = "cl100k_base"

// maxErrorBodyLength bounds how much of an upstream error body is carried
// into an InferenceError.
const maxErrorBodyLength = 512

var log = internal.GetLogger()

type InferenceError struct {
	message       string
	originalError error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference error: %s (original error: %v)", e.message, e.originalError)
}

func NewInferenceError(message string, originalError error) *InferenceError {
	return &InferenceError{message: message, originalError: originalError}
}

// Force compiler to validate that the client implements the interface.
var _ models.InferenceClient = &HuggingFaceClient{}

// HuggingFaceClient runs model tasks against the hosted Hugging Face
// Inference API, one pre-trained model per task.
type HuggingFaceClient struct {
	client         *http.Client
	endpoint       string
	apiKey         string
	models         config.InferenceModels
	generateMaxLen int
	summaryMaxLen  int
	summaryMinLen  int
	tkm            *tiktoken.Tiktoken
}

func NewHuggingFaceClient(cfg *config.Config) (*HuggingFaceClient, error) {
	if err := validateModels(cfg.Inference.Models); err != nil {
		return nil, err
	}

	endpoint := cfg.Inference.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	// Token counts are estimates. The encoding differs from the summarizer's
	// own tokenizer, but is close enough to clamp summary lengths with.
	tkm, err := tiktoken.GetEncoding(cl100kBase)
	if err != nil {
		log.Warnf("tiktoken encoding unavailable, summary length clamping disabled: %v", err)
		tkm = nil
	}

	return &HuggingFaceClient{
		client:         NewRetryableHTTPClient(MaxAPIRequestAttempts, APITimeout),
		endpoint:       endpoint,
		apiKey:         cfg.Inference.APIKey,
		models:         cfg.Inference.Models,
		generateMaxLen: cfg.Inference.Generate.MaxLength,
		summaryMaxLen:  cfg.Inference.Summary.MaxLength,
		summaryMinLen:  cfg.Inference.Summary.MinLength,
		tkm:            tkm,
	}, nil
}

func validateModels(m config.InferenceModels) error {
	named := map[string]string{
		"fill_mask":          m.FillMask,
		"text_generation":    m.TextGeneration,
		"sentiment":          m.Sentiment,
		"summarization":      m.Summarization,
		"question_answering": m.QuestionAnswering,
	}
	for task, model := range named {
		if model == "" {
			return NewInferenceError("no model configured for task "+task, nil)
		}
	}
	return nil
}

// NewRetryableHTTPClient returns a new retryable HTTP client with the given
// retryMax and timeout. The retryable HTTP transport is wrapped in an
// OpenTelemetry transport.
func NewRetryableHTTPClient(retryMax int, timeout time.Duration) *http.Client {
	retryableHTTPClient := retryablehttp.NewClient()
	retryableHTTPClient.RetryMax = retryMax
	retryableHTTPClient.HTTPClient.Timeout = timeout
	retryableHTTPClient.Logger = internal.NewLeveledLogrus(log)
	retryableHTTPClient.Backoff = retryablehttp.DefaultBackoff
	retryableHTTPClient.CheckRetry = retryPolicy

	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(
			retryableHTTPClient.StandardClient().Transport,
			otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
				return otelhttptrace.NewClientTrace(ctx)
			}),
		),
	}

	return httpClient
}

// retryPolicy is a retryablehttp.CheckRetry function. It is used to determine
// whether a request should be retried or not.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	// do not retry on context.Canceled or context.DeadlineExceeded
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	// Do not retry 400 errors. The API uses them for malformed task inputs.
	if resp != nil && resp.StatusCode == 400 {
		return false, err
	}

	// 503 means the model is still loading and is retried by the
	// default policy.
	shouldRetry, _ := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	return shouldRetry, nil
}

// post sends a task payload to the given model and unmarshals the response
// into out.
func (c *HuggingFaceClient) post(ctx context.Context, model string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return NewInferenceError("error marshaling request for "+model, err)
	}

	url := c.endpoint + "/models/" + model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return NewInferenceError("error creating request for "+model, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return NewInferenceError("error calling "+model, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewInferenceError("error reading response from "+model, err)
	}

	if resp.StatusCode != http.StatusOK {
		return NewInferenceError(
			fmt.Sprintf("%s returned status %d: %s", model, resp.StatusCode, truncateBody(respBody)),
			nil,
		)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return NewInferenceError("error unmarshaling response from "+model, err)
	}

	return nil
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBodyLength {
		return string(body[:maxErrorBodyLength]) + "..."
	}
	return string(body)
}
