package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// StatusResponse — состояние цикла оркестратора.
type StatusResponse struct {
	State                   string   `json:"state"`
	Phase                   string   `json:"phase"`
	ConfigPath              string   `json:"config_path,omitempty"`
	Pipelines               []string `json:"pipelines"`
	Cycles                  int64    `json:"cycles"`
	RunsProcessed           int64    `json:"runs_processed"`
	ActiveRuns              []string `json:"active_runs"`
	LastScanStartedAt       string   `json:"last_scan_started_at,omitempty"`
	LastScanDurationSeconds float64  `json:"last_scan_duration_seconds"`
	NextScanAt              string   `json:"next_scan_at,omitempty"`
}

// EventResponse — событие журнала из API.
type EventResponse struct {
	ID        string         `json:"id"`
	Type      string         `json:"event_type"`
	Level     string         `json:"level"`
	RunID     string         `json:"run_id,omitempty"`
	Pipeline  string         `json:"pipeline,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// ListEventsOpts — параметры фильтрации событий.
type ListEventsOpts struct {
	RunID    string
	Type     string
	Pipeline string
	Since    time.Duration
	Limit    int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для status API оркестратора.
type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// Status возвращает состояние цикла.
func (c *Client) Status() (*StatusResponse, error) {
	var status StatusResponse
	err := c.get("/api/v1/status", &status)
	return &status, err
}

// ListEvents возвращает события журнала, новые первыми.
func (c *Client) ListEvents(opts ListEventsOpts) ([]EventResponse, error) {
	params := url.Values{}
	if opts.RunID != "" {
		params.Set("run_id", opts.RunID)
	}
	if opts.Type != "" {
		params.Set("event_type", opts.Type)
	}
	if opts.Pipeline != "" {
		params.Set("pipeline", opts.Pipeline)
	}
	if opts.Since > 0 {
		params.Set("since", c.now().Add(-opts.Since).UTC().Format(time.RFC3339))
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var events []EventResponse
	err := c.list("/api/v1/events", params, &events)
	return events, err
}

// GetEvent возвращает событие по ID.
func (c *Client) GetEvent(id string) (*EventResponse, error) {
	var event EventResponse
	err := c.get("/api/v1/events/"+url.PathEscape(id), &event)
	return &event, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	resp, err := c.do(path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return json.Unmarshal(dr.Data, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) do(path string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
