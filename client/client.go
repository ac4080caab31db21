/*
Package client is the HTTP client of the docseald API.

Failed requests are turned back into registered errors, so a caller can
test a remote failure with errors.Is exactly as a local one.
*/
package client

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/httpx"
	"github.com/iov-one/docseal/x/capability"
	"github.com/iov-one/docseal/x/document"
)

// Client talks to a single docseald server.
type Client struct {
	baseURL string
	http    *http.Client

	mu      sync.RWMutex
	chainID string
}

// NewClient returns a client of the server at baseURL. A nil http client
// is replaced with one using a 30 second timeout.
func NewClient(baseURL string, c *http.Client) *Client {
	if c == nil {
		c = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    c,
	}
}

// Dial returns a client that already knows the chain id of the server.
func Dial(ctx context.Context, baseURL string, c *http.Client) (*Client, error) {
	cli := NewClient(baseURL, c)
	if _, err := cli.Stats(ctx); err != nil {
		return nil, errors.Wrap(err, "dial")
	}
	return cli, nil
}

// ChainID returns the chain id learned from the last Stats call.
func (c *Client) ChainID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chainID
}

// Deliver executes a transaction. It returns once the change is
// committed.
func (c *Client) Deliver(ctx context.Context, tx []byte) (*docseal.DeliverResult, error) {
	var res TxResponse
	if err := c.do(ctx, http.MethodPost, "/txs", TxRequest{Tx: tx}, &res); err != nil {
		return nil, err
	}
	return &docseal.DeliverResult{Data: res.Data, Log: res.Log}, nil
}

// Receipt returns the result of an applied transaction by its hash, see
// app.TxHash. It fails with ErrNotFound when the transaction was never
// applied.
func (c *Client) Receipt(ctx context.Context, hash []byte) (*docseal.DeliverResult, error) {
	var res ReceiptResponse
	if err := c.do(ctx, http.MethodGet, "/txs/"+hex.EncodeToString(hash), nil, &res); err != nil {
		return nil, err
	}
	return &docseal.DeliverResult{Data: res.Data, Log: res.Log}, nil
}

// Check validates a transaction against the current state without
// changing it.
func (c *Client) Check(ctx context.Context, tx []byte) (*docseal.CheckResult, error) {
	var res TxResponse
	if err := c.do(ctx, http.MethodPost, "/txs/check", TxRequest{Tx: tx}, &res); err != nil {
		return nil, err
	}
	return &docseal.CheckResult{Data: res.Data, Log: res.Log}, nil
}

func (c *Client) Document(ctx context.Context, id []byte) (*document.Document, error) {
	var doc document.Document
	if err := c.do(ctx, http.MethodGet, "/documents/"+hex.EncodeToString(id), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) IsAuthorized(ctx context.Context, id []byte, addr docseal.Address) (bool, error) {
	var res AuthorizedResponse
	path := "/documents/" + hex.EncodeToString(id) + "/authorized/" + addr.String()
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return false, err
	}
	return res.Authorized, nil
}

func (c *Client) HasSigned(ctx context.Context, id []byte, addr docseal.Address) (bool, error) {
	var res SignedResponse
	path := "/documents/" + hex.EncodeToString(id) + "/signed/" + addr.String()
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return false, err
	}
	return res.Signed, nil
}

// Created returns ids of documents created by the address.
func (c *Client) Created(ctx context.Context, addr docseal.Address) ([][]byte, error) {
	return c.documents(ctx, "/accounts/"+addr.String()+"/created")
}

// Assigned returns ids of documents the address was assigned to sign.
func (c *Client) Assigned(ctx context.Context, addr docseal.Address) ([][]byte, error) {
	return c.documents(ctx, "/accounts/"+addr.String()+"/assigned")
}

func (c *Client) documents(ctx context.Context, path string) ([][]byte, error) {
	var res DocumentsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	ids := make([][]byte, len(res.Documents))
	for i, s := range res.Documents {
		id, err := hex.DecodeString(s)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInput, "document id %q", s)
		}
		ids[i] = id
	}
	return ids, nil
}

// Capabilities returns a page of capabilities held by the address.
func (c *Client) Capabilities(ctx context.Context, holder docseal.Address, after []byte, limit int) ([]*capability.SignerCap, []byte, error) {
	q := url.Values{}
	if len(after) > 0 {
		q.Set("after", hex.EncodeToString(after))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/accounts/" + holder.String() + "/capabilities"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var res CapabilitiesResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, nil, err
	}
	if len(res.Next) == 0 {
		res.Next = nil
	}
	return res.Capabilities, res.Next, nil
}

// FindCapability scans capabilities of the holder page by page and
// returns the first one bound to the document.
func (c *Client) FindCapability(ctx context.Context, holder docseal.Address, documentID []byte, pageSize int) (*capability.SignerCap, error) {
	var after []byte
	for {
		caps, next, err := c.Capabilities(ctx, holder, after, pageSize)
		if err != nil {
			return nil, err
		}
		for _, cp := range caps {
			if capability.Validate(cp, documentID) {
				return cp, nil
			}
		}
		if next == nil {
			return nil, errors.Wrapf(capability.ErrCapabilityNotFound, "holder %s, document %X", holder, documentID)
		}
		after = next
	}
}

// Nonce returns the sequence the next transaction of the address must be
// signed with.
func (c *Client) Nonce(ctx context.Context, addr docseal.Address) (int64, error) {
	var res NonceResponse
	if err := c.do(ctx, http.MethodGet, "/accounts/"+addr.String()+"/nonce", nil, &res); err != nil {
		return 0, err
	}
	return res.Nonce, nil
}

// Stats returns the server statistics and remembers its chain id.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	var res StatsResponse
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &res); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.chainID = res.ChainID
	c.mu.Unlock()
	return &res, nil
}

func (c *Client) Health(ctx context.Context) error {
	var res HealthResponse
	return c.do(ctx, http.MethodGet, "/health", nil, &res)
}

// do sends a JSON request and decodes a JSON response into dest.
func (c *Client) do(ctx context.Context, method, path string, payload, dest interface{}) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return errors.Wrap(errors.ErrInput, err.Error())
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, &body)
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	req.Header.Set("accept", "application/json")
	if payload != nil {
		req.Header.Set("content-type", "application/json")
	}

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(errors.ErrTimeout, ctx.Err().Error())
		}
		return errors.Wrap(errors.ErrNetwork, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return httpx.DecodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return errors.Wrapf(errors.ErrNetwork, "decode response: %s", err)
	}
	return nil
}
