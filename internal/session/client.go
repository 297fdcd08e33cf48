package session

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

	"github.com/olivier-w/callbar/internal/observe"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultBaseURL is the session service used when none is configured.
	DefaultBaseURL = "https://api.upliftai.org"
	// DefaultParticipantName is how the caller appears in the room.
	DefaultParticipantName = "Anonymous"

	createSessionPath = "/v1/realtime-assistants/%s/createPublicSession"
	defaultTimeout    = 15 * time.Second
	errorBodyLimit    = 4 * 1024
)

// Credentials are what a transport needs to join a call.
type Credentials struct {
	Token    string `json:"token"`
	URL      string `json:"wsUrl"`
	RoomName string `json:"roomName"`
}

// Creator creates sessions for an assistant.
type Creator interface {
	CreateSession(ctx context.Context, assistantID, participantName string) (Credentials, error)
}

var _ Creator = (*Client)(nil)

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithBaseURL points the client at another session service.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// Client talks to the public session endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the default service.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the service the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

type createSessionRequest struct {
	ParticipantName string `json:"participantName"`
}

// CreateSession asks the service for room credentials. An empty participant
// name is sent as [DefaultParticipantName].
func (c *Client) CreateSession(ctx context.Context, assistantID, participantName string) (creds Credentials, err error) {
	ctx, span := observe.StartSpan(ctx, "session.create", trace.WithAttributes(attribute.String("assistant", assistantID)))
	defer func() { observe.EndSpan(span, err) }()

	if assistantID == "" {
		return Credentials{}, ErrMissingAssistantID
	}
	if participantName == "" {
		participantName = DefaultParticipantName
	}

	body, err := json.Marshal(createSessionRequest{ParticipantName: participantName})
	if err != nil {
		return Credentials{}, fmt.Errorf("session: marshal request: %w", err)
	}
	endpoint := c.baseURL + fmt.Sprintf(createSessionPath, url.PathEscape(assistantID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Credentials{}, fmt.Errorf("session: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Credentials{}, fmt.Errorf("session: POST %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyLimit))
		return Credentials{}, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(&creds); err != nil {
		return Credentials{}, fmt.Errorf("session: decode response: %w", err)
	}
	if creds.Token == "" || creds.URL == "" {
		return Credentials{}, errors.New("session: response missing token or wsUrl")
	}
	return creds, nil
}
