// Package director talks to the deployment director's HTTP API.
package director

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/cameronsjo/shipwright/internal/config"
	"github.com/cameronsjo/shipwright/internal/stemcell"
)

// ErrDirector indicates a failed request to the director.
var ErrDirector = errors.New("director request failed")

// Default timeouts and retry policy.
const (
	DefaultQueryTimeout  = 30 * time.Second
	DefaultUploadTimeout = 15 * time.Minute
	DefaultRetryCount    = 3
	DefaultRetryWait     = 2 * time.Second
)

// APIError is a non-2xx response from the director.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %s %s returned %d", ErrDirector, e.Method, e.Path, e.StatusCode)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}

// Is makes errors.Is(err, ErrDirector) hold.
func (e *APIError) Is(target error) bool {
	return target == ErrDirector
}

// Info identifies a director.
type Info struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
	CPI  string `json:"cpi"`
}

// Options tunes a Client. Zero values take the defaults.
type Options struct {
	QueryTimeout  time.Duration
	UploadTimeout time.Duration
	RetryCount    int
	RetryWait     time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueryTimeout == 0 {
		o.QueryTimeout = DefaultQueryTimeout
	}
	if o.UploadTimeout == 0 {
		o.UploadTimeout = DefaultUploadTimeout
	}
	if o.RetryCount == 0 {
		o.RetryCount = DefaultRetryCount
	}
	if o.RetryWait == 0 {
		o.RetryWait = DefaultRetryWait
	}
	return o
}

// Client is a director API client. It implements stemcell.Catalog.
type Client struct {
	query  *resty.Client
	upload *resty.Client
}

var _ stemcell.Catalog = (*Client)(nil)

// New creates a client for target with default options.
func New(target *config.Target) *Client {
	return NewWithOptions(target, Options{})
}

// NewWithOptions creates a client for target.
func NewWithOptions(target *config.Target, opts Options) *Client {
	opts = opts.withDefaults()

	query := newResty(target).
		SetTimeout(opts.QueryTimeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait)

	// Uploads are not idempotent; resty only retries idempotent methods.
	upload := newResty(target).
		SetTimeout(opts.UploadTimeout)

	return &Client{query: query, upload: upload}
}

func newResty(target *config.Target) *resty.Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(target.URL, "/")).
		SetHeader("Accept", "application/json")
	if target.Username != "" {
		c.SetBasicAuth(target.Username, target.Password)
	}
	if target.Insecure {
		c.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // opt-in for self-signed directors
	}
	return c
}

// Close releases idle connections.
func (c *Client) Close() error {
	return errors.Join(c.query.Close(), c.upload.Close())
}

// Info returns the director identity.
func (c *Client) Info(ctx context.Context) (Info, error) {
	var info Info
	resp, err := c.query.R().
		SetContext(ctx).
		SetResult(&info).
		Get("/info")
	if err := check(resp, err, http.MethodGet, "/info"); err != nil {
		return Info{}, err
	}
	return info, nil
}

// ListStemcells returns the stemcells uploaded to the director.
func (c *Client) ListStemcells(ctx context.Context) ([]stemcell.Record, error) {
	var records []stemcell.Record
	resp, err := c.query.R().
		SetContext(ctx).
		SetResult(&records).
		Get("/stemcells")
	if err := check(resp, err, http.MethodGet, "/stemcells"); err != nil {
		return nil, err
	}

	for i := range records {
		records[i].Infrastructure = stemcell.InfrastructureFromName(records[i].Name)
	}
	return records, nil
}

// UploadStemcell registers a stemcell. A location starting with http:// or
// https:// is fetched by the director; anything else is a local tarball
// sent as a multipart upload.
func (c *Client) UploadStemcell(ctx context.Context, location string) error {
	req := c.upload.R().SetContext(ctx)
	if isRemote(location) {
		req.SetBody(map[string]string{"location": location})
	} else {
		req.SetFile("stemcell", location)
	}

	resp, err := req.Post("/stemcells")
	return check(resp, err, http.MethodPost, "/stemcells")
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func check(resp *resty.Response, err error, method, path string) error {
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrDirector, method, path, err)
	}
	if resp.IsError() {
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
		}
	}
	return nil
}
