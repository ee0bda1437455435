// Package client reads resources from a running Samson CRUD service using the
// shared paging and hydration contract.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samson-dev/samson-db/query"
)

// ResponseError is returned for any non-2xx response.
type ResponseError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode), body)
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	token   string
	headers http.Header
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Add(key, value) }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 30 * time.Second},
		headers: http.Header{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListRequest is one search against a resource collection.
type ListRequest struct {
	Paging query.PagingModel
	// Filters are resource specific search fields such as "ids" or
	// "name_like". Empty values are not sent.
	Filters   map[string]string
	Operators query.RequestOperators
}

// Values encodes the request as query parameters. Paging fields that are
// unset are omitted.
func (r ListRequest) Values() url.Values {
	v := url.Values{}
	if r.Paging.Page != nil {
		v.Set("page", strconv.Itoa(*r.Paging.Page))
	}
	if r.Paging.PageLength != nil {
		v.Set("page_length", strconv.Itoa(*r.Paging.PageLength))
	}
	if r.Paging.SortBy != "" {
		v.Set("sort_by", r.Paging.SortBy)
	}
	if r.Paging.IsSortDescending != nil {
		v.Set("is_sort_descending", strconv.FormatBool(*r.Paging.IsSortDescending))
	}

	keys := make([]string, 0, len(r.Filters))
	for k := range r.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if r.Filters[k] != "" {
			v.Set(k, r.Filters[k])
		}
	}
	return v
}

// List fetches one page of a resource collection.
func (c *Client) List(ctx context.Context, resource string, req ListRequest) (*query.ItemList[query.Record], error) {
	u := c.resolve(resource)
	u.RawQuery = req.Values().Encode()

	var out query.ItemList[query.Record]
	if err := c.get(ctx, u, req.Operators, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []query.Record{}
	}
	return &out, nil
}

// Get fetches a single resource by id.
func (c *Client) Get(ctx context.Context, resource string, id uuid.UUID, ops query.RequestOperators) (query.Record, error) {
	var out query.Record
	if err := c.get(ctx, c.resolve(resource, id.String()), ops, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) resolve(parts ...string) *url.URL {
	u := *c.baseURL
	segments := []string{strings.TrimRight(u.Path, "/")}
	for _, p := range parts {
		segments = append(segments, url.PathEscape(strings.Trim(p, "/")))
	}
	u.Path = strings.Join(segments, "/")
	return &u
}

func (c *Client) get(ctx context.Context, u *url.URL, ops query.RequestOperators, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	query.SetHydrationHeader(req.Header, ops.Hydration)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &ResponseError{Method: http.MethodGet, URL: u.Redacted(), StatusCode: resp.StatusCode, Body: string(body)}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", u.Redacted(), err)
	}
	return nil
}
