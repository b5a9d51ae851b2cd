package cartsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/rentalkit-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
)

const (
	cartPath              = "/api/v1/cart"
	defaultRemoteTimeout  = 10 * time.Second
	responseBodyReadLimit = 1024
)

// Remote is the server-side cart the synchronizer reconciles with.
type Remote interface {
	Fetch(ctx context.Context) (cart.Snapshot, error)
	// Push replaces the server cart with snap.
	Push(ctx context.Context, snap cart.Snapshot) error
}

// Credentials supplies the identity headers for each request.
type Credentials func(ctx context.Context) (bearer, sessionID string)

// HTTPRemote talks to the cart endpoints of the API:
//
//	GET {base}/api/v1/cart
//	PUT {base}/api/v1/cart
type HTTPRemote struct {
	httpClient  *http.Client
	endpoint    string
	credentials Credentials
}

// RemoteOption configures an HTTPRemote.
type RemoteOption func(*HTTPRemote)

// WithRemoteHTTPClient overrides the default HTTP client.
func WithRemoteHTTPClient(client *http.Client) RemoteOption {
	return func(r *HTTPRemote) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// WithCredentials sets the identity supplier.
func WithCredentials(fn Credentials) RemoteOption {
	return func(r *HTTPRemote) {
		r.credentials = fn
	}
}

// NewHTTPRemote builds a remote rooted at the API base URL.
func NewHTTPRemote(baseURL string, opts ...RemoteOption) (*HTTPRemote, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("cart api base url is required")
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("parse cart api url: %w", err)
	}
	r := &HTTPRemote{
		httpClient: &http.Client{Timeout: defaultRemoteTimeout},
		endpoint:   trimmed + cartPath,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

type putCartBody struct {
	Items       []cart.Line     `json:"items"`
	GlobalDates *cart.DateRange `json:"global_dates"`
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (r *HTTPRemote) Fetch(ctx context.Context) (cart.Snapshot, error) {
	var view cart.View
	if err := r.do(ctx, http.MethodGet, nil, &view); err != nil {
		return cart.Snapshot{}, err
	}
	return cart.Snapshot{Items: view.Items, GlobalDates: view.GlobalDates}, nil
}

func (r *HTTPRemote) Push(ctx context.Context, snap cart.Snapshot) error {
	rec := cart.RecordFromSnapshot(cart.Owner{}, snap)
	payload, err := json.Marshal(putCartBody{Items: rec.Lines, GlobalDates: rec.GlobalDates})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	return r.do(ctx, http.MethodPut, payload, nil)
}

func (r *HTTPRemote) do(ctx context.Context, method string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build cart request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.credentials != nil {
		bearer, sessionID := r.credentials(ctx)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		if sessionID != "" {
			req.Header.Set("X-Session-Id", sessionID)
		}
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransientFetch, err, "execute cart request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransientFetch, err, "decode cart response")
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransientFetch, err, "decode cart payload")
	}
	return nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	var env envelope
	if json.Unmarshal(raw, &env) == nil && env.Error != nil && env.Error.Message != "" {
		cause = fmt.Errorf("status %d: %s: %s", resp.StatusCode, env.Error.Code, env.Error.Message)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, cause, "cart api rejected credentials")
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return pkgerrors.Wrap(pkgerrors.CodeTransientFetch, cause, "cart api unavailable")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, cause, "cart api request failed")
	}
}
