// Package phantom is the client for the PhantomBuster automation-job
// service. Agents are launched through the v1 API and their output polled
// through v2, the same split the service's own tooling uses.
package phantom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Omribarzi/lead-generation-agent/internal/errs"
	"github.com/Omribarzi/lead-generation-agent/internal/logging"
	"github.com/Omribarzi/lead-generation-agent/internal/models"
)

const (
	defaultBaseV1 = "https://phantombuster.com/api/v1"
	defaultBaseV2 = "https://api.phantombuster.com/api/v2"

	serviceName = "phantombuster"
)

type Client struct {
	apiKey  string
	hc      *http.Client
	baseV1  string
	baseV2  string
	limiter *rate.Limiter
	now     func() time.Time
	sleep   func(time.Duration)
	log     *logging.Logger
}

type Option func(*Client)

// WithBaseURLs overrides the v1 and v2 API endpoints, mainly for tests.
func WithBaseURLs(v1, v2 string) Option {
	return func(c *Client) { c.baseV1, c.baseV2 = v1, v2 }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithRateLimit paces outgoing API calls.
func WithRateLimit(reqPerSec float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(reqPerSec), burst) }
}

// WithClock injects the time source used for poll-budget bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithSleep injects the sleep used between polls.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Client) { c.sleep = sleep }
}

func WithLogger(log *logging.Logger) Option {
	return func(c *Client) { c.log = log }
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: 60 * time.Second},
		baseV1:  defaultBaseV1,
		baseV2:  defaultBaseV2,
		limiter: rate.NewLimiter(rate.Limit(1), 2),
		now:     time.Now,
		sleep:   time.Sleep,
		log:     logging.New("info").With("module", "phantom"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, url string, body any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &errs.TransportError{Service: serviceName, Err: err}
	}
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Phantombuster-Key-1", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &errs.TransportError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.TransportError{Service: serviceName, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &errs.TransportError{
			Service: serviceName,
			Err:     fmt.Errorf("unexpected status %d: %s", resp.StatusCode, raw),
		}
	}
	return raw, nil
}

// v1 responses wrap payloads as {"status": "...", "message": "...", "data": {...}}.
type v1Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) requestV1(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	raw, err := c.do(ctx, method, c.baseV1+endpoint, body)
	if err != nil {
		return nil, err
	}
	var env v1Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &errs.TransportError{Service: serviceName, Err: fmt.Errorf("decode response: %w", err)}
	}
	if env.Status == "error" {
		return nil, &errs.ServiceError{Service: serviceName, Message: env.Message}
	}
	if env.Data != nil {
		return env.Data, nil
	}
	return raw, nil
}

func (c *Client) requestV2(ctx context.Context, method, endpoint string, out any) error {
	raw, err := c.do(ctx, method, c.baseV2+endpoint, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &errs.TransportError{Service: serviceName, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Launch starts an agent run and returns its container id. The argument
// payload is forwarded to the agent as a JSON string, which is how the
// service expects it.
func (c *Client) Launch(ctx context.Context, agentID string, argument any) (string, error) {
	payload := map[string]any{}
	if argument != nil {
		arg, err := json.Marshal(argument)
		if err != nil {
			return "", fmt.Errorf("encode agent argument: %w", err)
		}
		payload["argument"] = string(arg)
	}
	data, err := c.requestV1(ctx, http.MethodPost, "/agent/"+agentID+"/launch", payload)
	if err != nil {
		return "", err
	}
	var out struct {
		ContainerID string `json:"containerId"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", &errs.TransportError{Service: serviceName, Err: fmt.Errorf("decode launch response: %w", err)}
	}
	c.log.Info("agent launched", "agent_id", agentID, "container_id", out.ContainerID)
	return out.ContainerID, nil
}

type outputResponse struct {
	ContainerID  string         `json:"containerId"`
	Status       string         `json:"status"`
	ResultObject map[string]any `json:"resultObject"`
	Output       string         `json:"output"`
	ExitCode     *int           `json:"exitCode"`
	Error        string         `json:"error"`
}

// FetchOutput polls the most recent execution of an agent once.
func (c *Client) FetchOutput(ctx context.Context, agentID string) (models.AutomationJob, error) {
	var out outputResponse
	if err := c.requestV2(ctx, http.MethodGet, "/agents/fetch-output?id="+agentID, &out); err != nil {
		return models.AutomationJob{}, err
	}

	status := models.JobFinished
	switch out.Status {
	case "running":
		status = models.JobRunning
	case "launching":
		status = models.JobLaunching
	case "error":
		status = models.JobError
	}

	return models.AutomationJob{
		ContainerID:  out.ContainerID,
		Status:       status,
		ResultObject: out.ResultObject,
		Output:       out.Output,
		ExitCode:     out.ExitCode,
		ErrorMessage: out.Error,
	}, nil
}

// WaitUntilDone polls an agent until it leaves the running state or the
// budget is spent. On timeout the remote job keeps running; a later poll may
// still observe a completion, which callers should treat as stale.
func (c *Client) WaitUntilDone(ctx context.Context, agentID string, timeout, pollInterval time.Duration) (models.AutomationJob, error) {
	start := c.now()
	for {
		job, err := c.FetchOutput(ctx, agentID)
		if err != nil {
			return models.AutomationJob{}, err
		}
		if job.Status != models.JobRunning {
			return job, nil
		}
		if c.now().Sub(start) > timeout {
			return models.AutomationJob{}, &errs.TimeoutError{AgentID: agentID, Budget: timeout.String()}
		}
		c.sleep(pollInterval)
	}
}

// LaunchAndWait launches an agent and waits for the run to end.
func (c *Client) LaunchAndWait(ctx context.Context, agentID string, argument any, timeout, pollInterval time.Duration) (models.AutomationJob, error) {
	if _, err := c.Launch(ctx, agentID, argument); err != nil {
		return models.AutomationJob{}, err
	}
	return c.WaitUntilDone(ctx, agentID, timeout, pollInterval)
}
