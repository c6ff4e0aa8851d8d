// Package api is a typed HTTP client for the Respeecher gateway.
//
// Every call is a single blocking request: non-2xx responses become *HTTPError,
// bodies that do not match the expected shape become *SchemaError. Nothing is
// retried. The client holds no state besides the auth header and the shared
// *http.Client, so it carries no business logic.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultDomain is the production gateway.
	DefaultDomain = "https://gateway.respeecher.com"

	// PaginationLimit is the page size requested from every list endpoint.
	PaginationLimit = 100

	defaultTimeout = 60 * time.Second

	// errorBodyLimit caps how much of a failed response is kept in HTTPError.
	errorBodyLimit = 2048
)

// Client talks to one Respeecher domain with one API key.
type Client struct {
	domain string
	apiKey string
	limit  int
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithPaginationLimit overrides PaginationLimit.
func WithPaginationLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limit = n
		}
	}
}

// New creates a client. An empty domain selects DefaultDomain.
func New(domain, apiKey string, opts ...Option) *Client {
	if domain == "" {
		domain = DefaultDomain
	}
	c := &Client{
		domain: strings.TrimSuffix(domain, "/"),
		apiKey: apiKey,
		limit:  PaginationLimit,
		http:   &http.Client{Timeout: defaultTimeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Domain returns the base URL requests are sent to.
func (c *Client) Domain() string { return c.domain }

// PageSize returns the limit sent with list requests.
func (c *Client) PageSize() int { return c.limit }

// UserProfile returns the account the API key belongs to.
func (c *Client) UserProfile(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, http.MethodPost, "/api/auth", nil, nil, schemaUser, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListVoices returns one page of voices sorted by name. Each narration style's
// Name is set to its tag names joined with ", ".
func (c *Client) ListVoices(ctx context.Context, offset int) (*VoiceList, error) {
	q := c.page(offset)
	q.Set("sort", "name")
	q.Set("direction", "asc")

	var vl VoiceList
	if err := c.call(ctx, http.MethodGet, "/api/v2/voices", q, nil, schemaVoiceList, &vl); err != nil {
		return nil, err
	}
	for i := range vl.List {
		styles := vl.List[i].NarrationStyles
		for j := range styles {
			styles[j].Name = joinTags(styles[j].Tags)
		}
	}
	return &vl, nil
}

// ListProjects returns one page of projects, filtered by owner when non-empty.
func (c *Client) ListProjects(ctx context.Context, offset int, owner string) (*ProjectList, error) {
	q := c.page(offset)
	if owner != "" {
		q.Set("owner", owner)
	}

	var pl ProjectList
	if err := c.call(ctx, http.MethodGet, "/api/projects", q, nil, schemaProjectList, &pl); err != nil {
		return nil, err
	}
	return &pl, nil
}

// CreateProject creates a project owned by userID. An empty name lets the backend pick one.
func (c *Client) CreateProject(ctx context.Context, userID, name string) (*Project, error) {
	body := createProjectRequest{Owner: userID, Name: name, Models: map[string]any{}}

	var p Project
	if err := c.call(ctx, http.MethodPost, "/api/projects", nil, body, schemaProject, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListFolders returns one page of the folders of a project.
func (c *Client) ListFolders(ctx context.Context, projectID string, offset int) (*FolderList, error) {
	q := c.page(offset)
	q.Set("project_id", projectID)

	var fl FolderList
	if err := c.call(ctx, http.MethodGet, "/api/folders", q, nil, schemaFolderList, &fl); err != nil {
		return nil, err
	}
	return &fl, nil
}

// CreateFolder creates a folder inside a project.
func (c *Client) CreateFolder(ctx context.Context, projectID, name string) (*Folder, error) {
	body := createFolderRequest{ProjectID: projectID, Name: name}

	var f Folder
	if err := c.call(ctx, http.MethodPost, "/api/folders", nil, body, schemaFolder, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateOriginal submits text as an original recording in a folder.
func (c *Client) CreateOriginal(ctx context.Context, folderID, text, language string) (*Recording, error) {
	body := createOriginalRequest{ParentFolderID: folderID, Text: text, TextLanguage: language}

	var r Recording
	if err := c.call(ctx, http.MethodPost, "/api/v2/recordings/tts", nil, body, schemaRecording, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRecording fetches a recording by id.
func (c *Client) GetRecording(ctx context.Context, id string) (*Recording, error) {
	var r Recording
	path := "/api/recordings/" + url.PathEscape(id)
	if err := c.call(ctx, http.MethodGet, path, nil, nil, schemaRecording, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DownloadRecording fetches the raw bytes behind a recording URL. The URL is
// relative to the domain.
func (c *Client) DownloadRecording(ctx context.Context, recordingURL string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, recordingURL, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading recording %s: %w", recordingURL, err)
	}
	return data, nil
}

// ConversionOrder orders one conversion of an original recording. The backend
// answers with a list of orders; only the first is returned.
func (c *Client) ConversionOrder(ctx context.Context, originalID, voiceID, narrationStyleID string) (*Order, error) {
	body := orderRequest{
		OriginalID: originalID,
		Conversions: []Conversion{
			{VoiceID: voiceID, NarrationStyleID: narrationStyleID},
		},
	}

	var orders []Order
	if err := c.call(ctx, http.MethodPost, "/api/v2/orders", nil, body, schemaOrderList, &orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (c *Client) page(offset int) url.Values {
	q := make(url.Values)
	q.Set("limit", strconv.Itoa(c.limit))
	q.Set("offset", strconv.Itoa(offset))
	return q
}

// call performs a request and decodes the validated JSON response into out.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body any, schema string, out any) error {
	resp, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s %s: %w", method, path, err)
	}
	return decode(path, schema, data, out)
}

// do sends an authenticated request and turns any non-2xx status into *HTTPError.
// On success the caller owns the response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling %s body: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.domain + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.logger.Debug("respeecher request", "method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &HTTPError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}
	return resp, nil
}

func joinTags(tags []NarrationStyleTag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}
