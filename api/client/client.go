package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/vocdoni/secret-ballot/api"
	"github.com/vocdoni/secret-ballot/log"
)

const (
	// HTTPGET is the method string used for calling Request()
	HTTPGET = http.MethodGet
	// HTTPPOST is the method string used for calling Request()
	HTTPPOST = http.MethodPost

	errCodeNot200 = "API error"

	// DefaultRetries is the number of attempts of a request when the
	// connection to the server fails.
	DefaultRetries = 3
	// DefaultTimeout is the default timeout of every attempt.
	DefaultTimeout = 10 * time.Second

	retryDelay      = 500 * time.Millisecond
	maxLoggedLength = 512
)

// HTTPclient is the ballot API HTTP client.
type HTTPclient struct {
	c       *http.Client
	host    *url.URL
	retries int
}

// New returns a client for the API served at host, after checking that it
// answers the ping endpoint.
func New(host string) (*HTTPclient, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, err
	}
	c := &HTTPclient{
		c: &http.Client{
			Transport: &http.Transport{IdleConnTimeout: DefaultTimeout},
			Timeout:   DefaultTimeout,
		},
		host:    hostURL,
		retries: DefaultRetries,
	}
	log.Debugw("http client created", "host", hostURL.String())
	if err := c.call(HTTPGET, nil, nil, api.PingEndpoint); err != nil {
		return nil, err
	}
	return c, nil
}

// SetRetries configures the number of attempts of every request.
func (c *HTTPclient) SetRetries(n int) {
	c.retries = n
}

// SetTimeout configures the timeout of every attempt.
func (c *HTTPclient) SetTimeout(d time.Duration) {
	c.c.Timeout = d
	if tr, ok := c.c.Transport.(*http.Transport); ok {
		tr.ResponseHeaderTimeout = d
	}
}

// Request sends a raw request to the endpoint built by joining urlPath to
// the host. A non nil jsonBody is sent JSON encoded. Connection failures are
// retried, any answer from the server is returned as is along with its
// status code.
func (c *HTTPclient) Request(method string, jsonBody any, urlPath ...string) ([]byte, int, error) {
	var body []byte
	if jsonBody != nil {
		var err error
		if body, err = json.Marshal(jsonBody); err != nil {
			return nil, 0, fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}
	u := *c.host
	u.Path = path.Join(u.Path, path.Join(urlPath...))

	logged := body
	if len(logged) > maxLoggedLength {
		logged = logged[:maxLoggedLength]
	}
	log.Debugw("http client request", "type", method, "url", u.String(), "body", string(logged))

	var (
		resp  *http.Response
		doErr error
	)
	for i := 1; i <= c.retries; i++ {
		req, err := http.NewRequest(method, u.String(), bytes.NewReader(body))
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		if jsonBody != nil {
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "application/json")
		}
		if resp, doErr = c.c.Do(req); doErr == nil {
			break
		}
		log.Warnw("http request failed", "error", doErr.Error(), "attempt", i, "retries", c.retries)
		time.Sleep(retryDelay)
	}
	if doErr != nil {
		return nil, 0, fmt.Errorf("http request ultimately failed after retries: %w", doErr)
	}
	if resp == nil {
		return nil, 0, fmt.Errorf("no http request performed, retries is %d", c.retries)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}

// call performs a request and decodes a successful answer into out, if not
// nil. Any other status is returned as an *Error.
func (c *HTTPclient) call(method string, jsonBody, out any, urlPath ...string) error {
	data, status, err := c.Request(method, jsonBody, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return responseError(status, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("could not decode %T: %w", out, err)
	}
	return nil
}
