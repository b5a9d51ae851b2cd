package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultPerPage   = 200
	maxFullListPages = 500

	responseBodyReadLimit int64 = 1024
)

// Client reads collections from the hosted record store over its REST API:
//
//	GET {base}/api/collections/{collection}/records
//	GET {base}/api/collections/{collection}/records/{id}
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	perPage    int
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken sends the value as the Authorization header on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithPerPage sets the page size used by FullList.
func WithPerPage(perPage int) Option {
	return func(c *Client) {
		if perPage > 0 {
			c.perPage = perPage
		}
	}
}

// NewClient builds a record store client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("record store base url is required")
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("parse record store url: %w", err)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		perPage:    defaultPerPage,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// ListParams narrows a collection listing. Filter uses the record store's
// filter syntax, e.g. `main_product_id="cam-1"`.
type ListParams struct {
	Filter  string
	Expand  string
	Sort    string
	Page    int
	PerPage int
}

func (p ListParams) query() url.Values {
	q := url.Values{}
	if p.Filter != "" {
		q.Set("filter", p.Filter)
	}
	if p.Expand != "" {
		q.Set("expand", p.Expand)
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		q.Set("perPage", strconv.Itoa(p.PerPage))
	}
	return q
}

// ListResult is one page of records.
type ListResult struct {
	Page       int      `json:"page"`
	PerPage    int      `json:"perPage"`
	TotalItems int      `json:"totalItems"`
	TotalPages int      `json:"totalPages"`
	Items      []Record `json:"items"`
}

// List fetches a single page of records.
func (c *Client) List(ctx context.Context, collection string, params ListParams) (*ListResult, error) {
	if err := c.checkCollection(collection); err != nil {
		return nil, err
	}
	var result ListResult
	endpoint := c.collectionURL(collection) + "/records"
	if err := c.get(ctx, endpoint, params.query(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FullList walks every page and returns all matching records.
func (c *Client) FullList(ctx context.Context, collection string, params ListParams) ([]Record, error) {
	if params.PerPage <= 0 {
		params.PerPage = c.perPage
	}
	var records []Record
	for page := 1; page <= maxFullListPages; page++ {
		params.Page = page
		result, err := c.List(ctx, collection, params)
		if err != nil {
			return nil, err
		}
		records = append(records, result.Items...)
		if len(result.Items) == 0 || page >= result.TotalPages {
			return records, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("collection %s exceeds %d pages", collection, maxFullListPages))
}

// First returns the first record matching params, or a NOT_FOUND error.
func (c *Client) First(ctx context.Context, collection string, params ListParams) (Record, error) {
	params.Page = 1
	params.PerPage = 1
	result, err := c.List(ctx, collection, params)
	if err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no %s record matches", collection))
	}
	return result.Items[0], nil
}

// GetOne fetches a record by id. A missing record yields NOT_FOUND.
func (c *Client) GetOne(ctx context.Context, collection, id, expand string) (Record, error) {
	if err := c.checkCollection(collection); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "record id is required")
	}
	q := url.Values{}
	if expand != "" {
		q.Set("expand", expand)
	}
	var record Record
	endpoint := c.collectionURL(collection) + "/records/" + url.PathEscape(trimmed)
	if err := c.get(ctx, endpoint, q, &record); err != nil {
		return nil, err
	}
	return record, nil
}

func (c *Client) checkCollection(collection string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "record store client not configured")
	}
	if strings.TrimSpace(collection) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "collection is required")
	}
	return nil
}

func (c *Client) collectionURL(collection string) string {
	return fmt.Sprintf("%s/api/collections/%s", c.baseURL, url.PathEscape(collection))
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build record store request")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransientFetch, err, "execute record store request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransientFetch, err, "decode record store response")
	}
	return nil
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, cause, "record not found")
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return pkgerrors.Wrap(pkgerrors.CodeTransientFetch, cause, "record store unavailable")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, cause, "record store rejected credentials")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, cause, "record store request failed")
	}
}
