package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// CardPath is where an agent publishes its card.
const CardPath = "/.well-known/agent-card.json"

// DefaultTimeout bounds a single request from NewHTTPClient.
const DefaultTimeout = 30 * time.Second

// Client talks to contributor agents.
type Client interface {
	SendMessage(ctx context.Context, endpoint string, req SendMessageRequest) (*Task, error)
	FetchCard(ctx context.Context, baseURL string) (*AgentCard, error)
}

var _ Client = (*HTTPClient)(nil)

// HTTPClient sends JSON-RPC calls over HTTP POST.
type HTTPClient struct {
	HTTP *http.Client
	seq  atomic.Int64
}

// NewHTTPClient returns a client whose requests time out after
// DefaultTimeout.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{HTTP: &http.Client{Timeout: DefaultTimeout}}
}

func (c *HTTPClient) SendMessage(ctx context.Context, endpoint string, req SendMessageRequest) (*Task, error) {
	body, err := encodeCall(c.seq.Add(1), MethodSendMessage, req)
	if err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("a2a: %s: %w", MethodSendMessage, err)
	}
	var task Task
	if err := decodeReply(data, MethodSendMessage, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *HTTPClient) FetchCard(ctx context.Context, baseURL string) (*AgentCard, error) {
	data, err := c.do(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+CardPath, nil)
	if err != nil {
		return nil, fmt.Errorf("a2a: fetch card: %w", err)
	}
	var card AgentCard
	if err := json.Unmarshal(data, &card); err != nil {
		return nil, fmt.Errorf("a2a: decode card: %w", err)
	}
	return &card, nil
}

// do sends one request and returns the body of a 200 response.
func (c *HTTPClient) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

// Ask sends prompt as a blocking user message and returns the text of the
// completed task. Any other final state is an error.
func Ask(ctx context.Context, c Client, endpoint, contextID, prompt string) (string, error) {
	task, err := c.SendMessage(ctx, endpoint, SendMessageRequest{
		Message: Message{
			MessageID: uuid.NewString(),
			ContextID: contextID,
			Role:      RoleUser,
			Parts:     []Part{TextPart(prompt)},
		},
		Configuration: &SendMessageConfig{
			AcceptedOutputModes: []string{"text/markdown", "text/plain"},
			Blocking:            true,
		},
	})
	if err != nil {
		return "", err
	}
	if task.Status.State != TaskStateCompleted {
		return "", fmt.Errorf("a2a: task %s ended %s", task.ID, task.Status.State)
	}
	return task.Text(), nil
}
