// Package client talks to the geo-survey REST API.
package client

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mbolis/geo-survey/log"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// TokenSource yields the bearer token to attach, or "" when there is none.
type TokenSource interface {
	Token() string
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Request struct {
	Method string
	Header http.Header
	// Body is sent as is when it is a string, []byte, io.Reader or
	// url.Values. Anything else is encoded as JSON when the content type is
	// JSON.
	Body any
}

type Response struct {
	Status int
	Header http.Header
	// Body is nil for 204 responses.
	Body []byte
}

func (r *Response) Empty() bool {
	return r.Status == http.StatusNoContent
}

// JSON reports whether the body was declared as JSON.
func (r *Response) JSON() bool {
	return isJSON(r.Header.Get("Content-Type"))
}

func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Call sends a request to endpoint, which is relative to the base URL. Every
// non-2xx answer becomes an *APIError; transport failures become a
// *NetworkError. Call never retries.
func (c *Client) Call(ctx context.Context, endpoint string, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.baseURL + endpoint

	header := http.Header{}
	header.Set("Content-Type", ContentTypeJSON)
	for key, values := range req.Header {
		header[http.CanonicalHeaderKey(key)] = values
	}
	if header.Get("Authorization") == "" && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	body, err := encodeBody(req.Body, header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header = header

	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.Debugf("client.call: %s %s: %s", method, target, err)
		return nil, &NetworkError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Debugf("client.call.read_body: %s %s: %s", method, target, err)
		return nil, &NetworkError{Method: method, URL: target, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, raw)
	}

	out := &Response{Status: resp.StatusCode, Header: resp.Header}
	if resp.StatusCode != http.StatusNoContent {
		out.Body = raw
	}
	return out, nil
}

// do calls endpoint and decodes a JSON answer into out, if out is not nil.
func (c *Client) do(ctx context.Context, endpoint string, req Request, out any) error {
	resp, err := c.Call(ctx, endpoint, req)
	if err != nil {
		return err
	}
	if out == nil || resp.Empty() || !resp.JSON() {
		return nil
	}
	return resp.Decode(out)
}

func encodeBody(body any, contentType string) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case string:
		return strings.NewReader(b), nil
	case []byte:
		return bytes.NewReader(b), nil
	case url.Values:
		return strings.NewReader(b.Encode()), nil
	case io.Reader:
		return b, nil
	}

	if !isJSON(contentType) {
		return nil, &encodeError{contentType}
	}
	encoded, err := marshal(body)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(encoded), nil
}

type encodeError struct {
	contentType string
}

func (e *encodeError) Error() string {
	return "client: cannot encode body as " + e.contentType
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == ContentTypeJSON || strings.HasSuffix(mediaType, "+json")
}

func marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
