package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"linguaquest/internal/models"
)

// Event is one push from the server's broadcast channel.
type Event struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// EventUserDataUpdated signals that the server-side stats record changed,
// usually because another device of the same user synced.
const EventUserDataUpdated = "user:data:updated"

// Client is the device's REST transport to the authoritative server. Every
// error it returns is classified as transient, validation or not-found so
// the action queue can decide between retry and dead-letter.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the given API base URL. The bearer token
// authenticates the device's user; issuance happens elsewhere.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Healthz probes server reachability with a short deadline.
func (c *Client) Healthz(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: healthz status %d", ErrTransient, resp.StatusCode)
	}
	return nil
}

// GetStats fetches the server's current aggregate stats.
func (c *Client) GetStats(ctx context.Context) (*models.AggregateStats, error) {
	var resp struct {
		Stats models.AggregateStats `json:"stats"`
	}
	if err := c.do(ctx, http.MethodGet, "/user/stats", "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Stats, nil
}

// PostStats submits a stats write for server-side LWW merge and returns the
// merged record.
func (c *Client) PostStats(ctx context.Context, patch models.StatsPatch, idemKey string) (*models.AggregateStats, error) {
	body := struct {
		Stats models.StatsPatch `json:"stats"`
	}{Stats: patch}

	var resp struct {
		Stats models.AggregateStats `json:"stats"`
	}
	if err := c.do(ctx, http.MethodPost, "/user/stats", idemKey, body, &resp); err != nil {
		return nil, err
	}
	return &resp.Stats, nil
}

// SaveSession uploads an autosave snapshot.
func (c *Client) SaveSession(ctx context.Context, p *models.LessonProgress, idemKey string) error {
	return c.do(ctx, http.MethodPost, "/progress/user/session", idemKey, p, nil)
}

// FetchSession downloads the autosave snapshot for a lesson; nil without
// error when the server has none.
func (c *Client) FetchSession(ctx context.Context, lessonID string) (*models.LessonProgress, error) {
	var p models.LessonProgress
	path := "/progress/user/session?lessonId=" + url.QueryEscape(lessonID)
	err := c.do(ctx, http.MethodGet, path, "", nil, &p)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// DeleteSession removes the server-side snapshot for a lesson.
func (c *Client) DeleteSession(ctx context.Context, lessonID string) error {
	path := "/progress/user/session?lessonId=" + url.QueryEscape(lessonID)
	err := c.do(ctx, http.MethodDelete, path, "", nil, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

// FinishLesson reports a completion summary. The server applies the stats
// delta, clears the session and re-evaluates unlocks.
func (c *Client) FinishLesson(ctx context.Context, summary models.CompletionSummary, idemKey string) error {
	return c.do(ctx, http.MethodPost, "/progress/finish", idemKey, summary, nil)
}

// TickStreak advances the daily streak and returns the updated value.
func (c *Client) TickStreak(ctx context.Context, idemKey string) (int, error) {
	var resp struct {
		Streak int `json:"streak"`
	}
	if err := c.do(ctx, http.MethodPost, "/streak/tick", idemKey, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Streak, nil
}

// UnlockedLevels fetches the ordered unlocked-stage id list for a user.
func (c *Client) UnlockedLevels(ctx context.Context, userID string) ([]string, error) {
	var resp struct {
		Unlocked []string `json:"unlocked"`
	}
	if err := c.do(ctx, http.MethodGet, "/lessons/unlocked/"+url.PathEscape(userID), "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Unlocked, nil
}

// Send replays a queued action against its endpoint, using the action id as
// the idempotency key so a duplicate delivery returns the cached ack.
func (c *Client) Send(ctx context.Context, action models.PendingAction) error {
	switch action.Type {
	case models.ActionSaveProgress:
		var p models.LessonProgress
		if err := json.Unmarshal(action.Payload, &p); err != nil {
			return fmt.Errorf("%w: decode %s payload: %v", ErrValidation, action.Type, err)
		}
		return c.SaveSession(ctx, &p, action.ID)

	case models.ActionUpdateStats:
		var patch models.StatsPatch
		if err := json.Unmarshal(action.Payload, &patch); err != nil {
			return fmt.Errorf("%w: decode %s payload: %v", ErrValidation, action.Type, err)
		}
		_, err := c.PostStats(ctx, patch, action.ID)
		return err

	case models.ActionFinishLesson:
		var summary models.CompletionSummary
		if err := json.Unmarshal(action.Payload, &summary); err != nil {
			return fmt.Errorf("%w: decode %s payload: %v", ErrValidation, action.Type, err)
		}
		return c.FinishLesson(ctx, summary, action.ID)

	case models.ActionTickStreak:
		_, err := c.TickStreak(ctx, action.ID)
		return err

	default:
		return fmt.Errorf("%w: unknown action type %q", ErrValidation, action.Type)
	}
}

// Events dials the server's push channel and invokes onEvent for every
// decoded envelope. It blocks until ctx is cancelled (returning nil) or the
// connection drops (returning a transient error, so callers reconnect).
func (c *Client) Events(ctx context.Context, onEvent func(Event)) error {
	wsURL := strings.Replace(c.baseURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL += "/ws/user"

	opts := &websocket.DialOptions{HTTPHeader: http.Header{}}
	if c.token != "" {
		opts.HTTPHeader.Set("Authorization", "Bearer "+c.token)
	}

	conn, _, err := websocket.Dial(ctx, wsURL, opts)
	if err != nil {
		return fmt.Errorf("%w: dial events: %v", ErrTransient, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: events read: %v", ErrTransient, err)
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			// A malformed push is the server's problem, not a reason to drop
			continue
		}
		onEvent(ev)
	}
}

// do performs a JSON round trip and maps the response status onto the error
// taxonomy.
func (c *Client) do(ctx context.Context, method, path, idemKey string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", ErrValidation, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if idemKey != "" {
		req.Header.Set("X-Idempotency-Key", idemKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts included: any transport failure is retryable
		return fmt.Errorf("%w: %s %s: %v", ErrTransient, method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s: status %d", ErrTransient, method, path, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: %s %s: status %d", ErrValidation, method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrTransient, err)
		}
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
