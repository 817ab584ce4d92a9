// Package repology fetches project data from the Repology API.
package repology

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentstation/pkgfeed/pkg/constants"
	"github.com/agentstation/pkgfeed/pkg/errors"
)

// ServiceName identifies Repology in errors.
const ServiceName = "repology"

// Client fetches the package list of a project.
type Client struct {
	APIURL    string
	UserAgent string
	Client    *http.Client
}

// NewClient creates a Repology client. Empty arguments use the defaults.
func NewClient(apiURL, userAgent string, timeout time.Duration) *Client {
	if apiURL == "" {
		apiURL = constants.DefaultAPIURL
	}
	if userAgent == "" {
		userAgent = constants.DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	return &Client{
		APIURL:    strings.TrimRight(apiURL, "/"),
		UserAgent: userAgent,
		Client:    &http.Client{Timeout: timeout},
	}
}

// ProjectURL returns the API endpoint for a project.
func (c *Client) ProjectURL(project string) string {
	return c.APIURL + "/" + url.PathEscape(project)
}

// FetchProject performs one GET for the project and returns the decoded
// package records. Records are left untyped; the extractor reads them
// defensively.
func (c *Client) FetchProject(ctx context.Context, project string) ([]any, error) {
	if strings.TrimSpace(project) == "" {
		return nil, errors.NewValidationError("project", project, "project name is required")
	}

	endpoint := c.ProjectURL(project)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &errors.APIError{
			Service:  ServiceName,
			Endpoint: endpoint,
			Message:  "failed to create request",
			Err:      err,
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.Client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, errors.NewTimeoutError("fetch "+project, c.Client.Timeout.String(), err.Error())
		}
		return nil, &errors.APIError{
			Service:  ServiceName,
			Endpoint: endpoint,
			Message:  "request failed",
			Err:      err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &errors.APIError{
			Service:    ServiceName,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxResponseSize+1))
	if err != nil {
		return nil, errors.WrapIO("read", "response body", err)
	}
	if len(body) > constants.MaxResponseSize {
		return nil, errors.NewParseError("json", endpoint,
			fmt.Sprintf("response exceeds %d bytes", constants.MaxResponseSize), nil)
	}

	var records []any
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, errors.WrapParse("json", endpoint, err)
	}
	if records == nil {
		records = []any{}
	}
	return records, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
