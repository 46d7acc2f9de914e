// Package transmission is a minimal client for the Transmission daemon's
// JSON-RPC interface. It only knows how to list torrents.
package transmission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultPort is the daemon's standard RPC port.
	DefaultPort = 9091
	// DefaultTimeout bounds a whole RPC round trip.
	DefaultTimeout = 30 * time.Second

	rpcPath         = "/transmission/rpc"
	sessionIDHeader = "X-Transmission-Session-Id"
)

// ErrRPC is wrapped by every failure reported by the daemon.
var ErrRPC = errors.New("transmission rpc")

// RPCError is a failed RPC exchange: a non-success result string or an
// unexpected HTTP status.
type RPCError struct {
	Method     string
	StatusCode int
	Result     string
}

func (e *RPCError) Error() string {
	if e.Result != "" {
		return fmt.Sprintf("transmission rpc %s: %s", e.Method, e.Result)
	}
	return fmt.Sprintf("transmission rpc %s: http status %d", e.Method, e.StatusCode)
}

// Unwrap lets errors.Is match [ErrRPC].
func (e *RPCError) Unwrap() error { return ErrRPC }

// HostSpec says where the daemon is and how to authenticate.
type HostSpec struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// ParseAuth splits "user:pass" on the first colon. The password may itself
// contain colons.
func ParseAuth(auth string) (username, password string) {
	username, password, _ = strings.Cut(auth, ":")
	return username, password
}

// Client talks to one daemon. It is safe for concurrent use.
type Client struct {
	endpoint string
	spec     HostSpec
	http     *http.Client

	mu        sync.Mutex
	sessionID string
}

// New returns a client for spec. Zero Port and Timeout take their defaults.
func New(spec HostSpec) *Client {
	if spec.Port == 0 {
		spec.Port = DefaultPort
	}
	if spec.Timeout <= 0 {
		spec.Timeout = DefaultTimeout
	}
	if spec.Host == "" {
		spec.Host = "localhost"
	}
	return &Client{
		endpoint: "http://" + net.JoinHostPort(spec.Host, strconv.Itoa(spec.Port)) + rpcPath,
		spec:     spec,
		http:     &http.Client{Timeout: spec.Timeout},
	}
}

// Endpoint returns the RPC URL.
func (c *Client) Endpoint() string { return c.endpoint }

type request struct {
	Method    string `json:"method"`
	Arguments any    `json:"arguments,omitempty"`
}

type response struct {
	Result    string          `json:"result"`
	Arguments json.RawMessage `json:"arguments"`
}

// List returns the daemon's torrents with the requested fields. Numbers are
// decoded as json.Number so integer fields keep their exact value.
func (c *Client) List(ctx context.Context, fields []string) ([]map[string]any, error) {
	args := struct {
		Fields []string `json:"fields"`
	}{Fields: fields}

	raw, err := c.call(ctx, "torrent-get", args)
	if err != nil {
		return nil, err
	}
	var out struct {
		Torrents []map[string]any `json:"torrents"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode torrent-get arguments: %w", err)
	}
	return out.Torrents, nil
}

func (c *Client) call(ctx context.Context, method string, args any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.spec.Timeout)
	defer cancel()

	body, err := json.Marshal(request{Method: method, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}

	// The daemon answers 409 with a fresh session id on first contact and
	// whenever the id expires; retry once with the new one.
	for attempt := 0; ; attempt++ {
		resp, err := c.post(ctx, body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, c.endpoint, err)
		}
		if resp.StatusCode == http.StatusConflict && attempt == 0 {
			id := resp.Header.Get(sessionIDHeader)
			drain(resp)
			if id == "" {
				return nil, &RPCError{Method: method, StatusCode: resp.StatusCode}
			}
			c.setSessionID(id)
			continue
		}
		defer drain(resp)
		if resp.StatusCode != http.StatusOK {
			return nil, &RPCError{Method: method, StatusCode: resp.StatusCode}
		}
		var r response
		if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", method, err)
		}
		if r.Result != "success" {
			return nil, &RPCError{Method: method, StatusCode: resp.StatusCode, Result: r.Result}
		}
		return r.Arguments, nil
	}
}

func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if id := c.getSessionID(); id != "" {
		req.Header.Set(sessionIDHeader, id)
	}
	if c.spec.Username != "" {
		req.SetBasicAuth(c.spec.Username, c.spec.Password)
	}
	return c.http.Do(req)
}

func (c *Client) getSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) setSessionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
