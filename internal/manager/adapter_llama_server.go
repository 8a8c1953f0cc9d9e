package manager

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// llamaServerAdapter implements InferenceAdapter by talking to a running llama.cpp
// server over its OpenAI-compatible HTTP API.
type llamaServerAdapter struct {
	baseURL    string
	apiKey     string
	reqTimeout time.Duration
	httpClient *http.Client
}

// NewLlamaServerAdapter constructs a server-backed adapter.
func NewLlamaServerAdapter(baseURL, apiKey string, reqTimeout, connectTimeout time.Duration) InferenceAdapter {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout=0: every request carries a context deadline instead.
	cli := &http.Client{Transport: tr, Timeout: 0}
	return &llamaServerAdapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		reqTimeout: reqTimeout,
		httpClient: cli,
	}
}

// llamaServerSession holds the model name sent with every completion.
type llamaServerSession struct {
	adapter *llamaServerAdapter
	modelID string
}

// Start checks that the server answers /v1/models. In server mode the model is
// selected by name; the on-disk path is the server's concern.
func (a *llamaServerAdapter) Start(ctx context.Context, modelID string) (InferSession, error) {
	if a.baseURL == "" {
		return nil, ErrDependencyUnavailable("llama server url is empty")
	}
	hctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := a.checkHealth(hctx); err != nil {
		return nil, ErrDependencyUnavailable(fmt.Sprintf("llama server at %s unavailable: %v", a.baseURL, err))
	}
	return &llamaServerSession{adapter: a, modelID: strings.TrimSpace(modelID)}, nil
}

func (a *llamaServerAdapter) checkHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/models", nil)
	if err != nil {
		return err
	}
	a.authorize(req)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

func (a *llamaServerAdapter) authorize(req *http.Request) {
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}
}

// openAICompletionRequest represents the payload for /v1/completions.
type openAICompletionRequest struct {
	Model       string   `json:"model,omitempty"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float32  `json:"temperature,omitempty"`
	TopP        float32  `json:"top_p,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Seed        int      `json:"seed,omitempty"`
	Stream      bool     `json:"stream"`
	// Not standard OpenAI; llama.cpp accepts it, other servers ignore it.
	RepeatPenalty float32 `json:"repeat_penalty,omitempty"`
}

// openAIStreamChoice is a minimal subset of an OpenAI streaming choice. Legacy
// completions stream "text"; chat-style servers stream "delta.content".
type openAIStreamChoice struct {
	Text  string `json:"text"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

type openAIStreamResponse struct {
	Object  string               `json:"object"`
	Choices []openAIStreamChoice `json:"choices"`
	Usage   *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

func (s *llamaServerSession) Generate(ctx context.Context, prompt string, params InferParams, onToken func(string) error) (FinalResult, error) {
	if s.adapter == nil || s.adapter.httpClient == nil {
		return FinalResult{}, errors.New("llama server adapter not initialized")
	}
	if s.adapter.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.adapter.reqTimeout)
		defer cancel()
	}

	payload := openAICompletionRequest{
		Model:         s.modelID,
		Prompt:        prompt,
		MaxTokens:     params.MaxTokens,
		Temperature:   params.Temperature,
		TopP:          params.TopP,
		TopK:          params.TopK,
		Stop:          params.Stop,
		Seed:          params.Seed,
		Stream:        true,
		RepeatPenalty: params.RepeatPenalty,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return FinalResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.adapter.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return FinalResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	s.adapter.authorize(req)
	resp, err := s.adapter.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return FinalResult{}, ctx.Err()
		}
		return FinalResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return FinalResult{}, fmt.Errorf("llama server http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return readCompletionStream(ctx, resp.Body, onToken)
}

// readCompletionStream parses Server-Sent Events ("data: {...}" lines ending
// with "data: [DONE]") into tokens and a final result.
func readCompletionStream(ctx context.Context, body io.Reader, onToken func(string) error) (FinalResult, error) {
	r := bufio.NewReader(body)
	var final FinalResult
	var content strings.Builder
	for {
		line, err := r.ReadString('\n')
		if l := strings.TrimSpace(line); l != "" && strings.HasPrefix(strings.ToLower(l), "data:") {
			data := strings.TrimSpace(l[len("data:"):])
			if data == "[DONE]" {
				break
			}
			var msg openAIStreamResponse
			if jerr := json.Unmarshal([]byte(data), &msg); jerr != nil {
				return final, fmt.Errorf("decode stream line: %w", jerr)
			}
			if len(msg.Choices) > 0 {
				c := msg.Choices[0]
				frag := c.Text
				if frag == "" {
					frag = c.Delta.Content
				}
				if frag != "" {
					content.WriteString(frag)
					if cbErr := onToken(frag); cbErr != nil {
						return final, cbErr
					}
				}
				if c.FinishReason != "" {
					final.FinishReason = c.FinishReason
				}
			}
			if msg.Usage != nil {
				final.Usage = Usage{
					PromptTokens:     msg.Usage.PromptTokens,
					CompletionTokens: msg.Usage.CompletionTokens,
					TotalTokens:      msg.Usage.TotalTokens,
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				return final, ctx.Err()
			}
			return final, err
		}
	}
	final.Content = content.String()
	return final, nil
}

func (s *llamaServerSession) Close() error {
	s.adapter.httpClient.CloseIdleConnections()
	return nil
}
