// Package transport implements the HTTP client for the roster collection API.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/coachpo/rosterview/errs"
	"github.com/coachpo/rosterview/internal/schema"
	"github.com/coachpo/rosterview/internal/viewstate"
)

const (
	defaultTimeout    = 30 * time.Second
	collectionPath    = "/collection"
	headerRequestID   = "X-Request-ID"
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

// Config captures user-overridable transport settings.
type Config struct {
	BaseURL string
	// Timeout bounds every request. Zero means the 30s default.
	Timeout time.Duration
	// RequestsPerSecond throttles outbound calls; zero disables throttling.
	RequestsPerSecond float64
	Burst             int
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	return c
}

// Client talks to the roster collection endpoints.
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

// New constructs a transport client.
func New(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.BaseURL == "" {
		return nil, errs.New("transport/new", errs.CodeInvalid, errs.WithMessage("base url required"))
	}
	c := new(Client)
	c.cfg = cfg
	c.client = &http.Client{Timeout: cfg.Timeout}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}
	return c, nil
}

type listEnvelope struct {
	Data struct {
		Users      []schema.User `json:"users"`
		TotalCount int           `json:"totalCount"`
	} `json:"data"`
}

type patchEnvelope struct {
	Success bool        `json:"success"`
	Data    schema.User `json:"data"`
	Message string      `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
}

// ListUsers fetches one page of the collection. The wire page parameter is
// 1-based, matching the shareable URL form.
func (c *Client) ListUsers(ctx context.Context, params viewstate.Params) (schema.CollectionPage, error) {
	const op = "transport/list"
	values := url.Values{}
	values.Set("page", strconv.Itoa(params.Page+1))
	values.Set("pageSize", strconv.Itoa(params.PageSize))
	if params.Query != "" {
		values.Set("query", params.Query)
	}
	if params.Status != viewstate.StatusAll && params.Status != "" {
		values.Set("status", string(params.Status))
	}
	if params.SortBy != "" {
		values.Set("sortBy", params.SortBy)
		values.Set("sortOrder", string(params.SortOrder))
	}

	endpoint := c.cfg.BaseURL + collectionPath + "?" + values.Encode()
	body, err := c.do(ctx, op, http.MethodGet, endpoint, nil)
	if err != nil {
		return schema.CollectionPage{}, err
	}

	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return schema.CollectionPage{}, errs.New(op, errs.CodeParse,
			errs.WithMessage("decode list response"), errs.WithRawBody(string(body)), errs.WithCause(err))
	}
	return schema.CollectionPage{Users: envelope.Data.Users, TotalCount: envelope.Data.TotalCount}, nil
}

// UpdateUserStatus issues a status change for one record and returns the
// server-authoritative record.
func (c *Client) UpdateUserStatus(ctx context.Context, userID string, status schema.UserStatus) (schema.User, error) {
	const op = "transport/patch"
	if strings.TrimSpace(userID) == "" {
		return schema.User{}, errs.New(op, errs.CodeInvalid, errs.WithMessage("user id required"))
	}
	payload, err := json.Marshal(map[string]string{"status": string(status)})
	if err != nil {
		return schema.User{}, fmt.Errorf("encode patch body: %w", err)
	}

	endpoint := c.cfg.BaseURL + collectionPath + "/" + url.PathEscape(userID)
	body, err := c.do(ctx, op, http.MethodPatch, endpoint, payload)
	if err != nil {
		return schema.User{}, err
	}

	var envelope patchEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return schema.User{}, errs.New(op, errs.CodeParse,
			errs.WithMessage("decode patch response"), errs.WithRawBody(string(body)), errs.WithCause(err))
	}
	if !envelope.Success {
		return schema.User{}, errs.New(op, errs.CodeClientRejected,
			errs.WithMessage(envelope.Message), errs.WithRawBody(string(body)))
	}
	return envelope.Data, nil
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, payload []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errs.New(op, errs.CodeTimeout,
				errs.WithMessage("rate limiter wait"), errs.WithCause(err))
		}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set(headerRequestID, uuid.NewString())
	if payload != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(op, errs.CodeNetwork,
			errs.WithMessage("read response body"), errs.WithCause(err))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, parseAPIError(op, resp.StatusCode, body)
	}
	return body, nil
}

// classifyTransportError distinguishes deadline expiry from connectivity
// failures so the retry policy can treat them uniformly but report them apart.
func classifyTransportError(op string, err error) error {
	code := errs.CodeNetwork
	var urlErr *url.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &urlErr) && urlErr.Timeout()) {
		code = errs.CodeTimeout
	}
	return errs.New(op, code, errs.WithMessage("request failed"), errs.WithCause(err))
}

// parseAPIError builds a classified error from a non-2xx response. The body
// may be empty or non-JSON; error handling must not fall over either way.
func parseAPIError(op string, status int, body []byte) error {
	opts := []errs.Option{errs.WithHTTP(status)}
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		opts = append(opts, errs.WithMessage(apiErr.Message))
	} else if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		opts = append(opts, errs.WithRawBody(trimmed))
	}
	return errs.New(op, errs.ClassifyHTTP(status), opts...)
}
