/*
Package httpkey exposes a key server over HTTP.

	POST /v1/shares/wrap     {"identity", "index", "share"}  -> WrappedShare
	POST /v1/shares/release  ShareRequest                   -> {"sealed"}

Client is a local.ShareServer, so a committee can mix remote and in
process members.
*/
package httpkey

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/httpx"
	"github.com/iov-one/docseal/seal"
	"github.com/iov-one/docseal/seal/local"
	"github.com/tendermint/tendermint/libs/log"
)

const maxRequestSize = 1 << 20

// WrapRequest asks the server to wrap a share for an identity.
type WrapRequest struct {
	Identity []byte `json:"identity"`
	Index    byte   `json:"index"`
	Share    []byte `json:"share"`
}

// ReleaseResponse carries a share sealed to the requester session.
type ReleaseResponse struct {
	Sealed []byte `json:"sealed"`
}

// Client talks to a single remote key server.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ local.ShareServer = (*Client)(nil)

// NewClient returns a client of the key server at baseURL. A nil http
// client is replaced with one using a 10 second timeout.
func NewClient(baseURL string, c *http.Client) *Client {
	if c == nil {
		c = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: c}
}

func (c *Client) WrapShare(ctx context.Context, identity []byte, index byte, share []byte) (*seal.WrappedShare, error) {
	var ws seal.WrappedShare
	req := WrapRequest{Identity: identity, Index: index, Share: share}
	if err := c.post(ctx, "/v1/shares/wrap", req, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (c *Client) ReleaseShare(ctx context.Context, req *seal.ShareRequest) ([]byte, error) {
	var res ReleaseResponse
	if err := c.post(ctx, "/v1/shares/release", req, &res); err != nil {
		return nil, err
	}
	return res.Sealed, nil
}

func (c *Client) post(ctx context.Context, path string, payload, dest interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	req.Header.Set("content-type", "application/json")

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
		return errors.Wrapf(errors.ErrNetwork, "decode key server response: %s", err)
	}
	return nil
}

// Handler serves a key server.
type Handler struct {
	server local.ShareServer
	logger log.Logger
}

func NewHandler(server local.ShareServer, logger log.Logger) *Handler {
	return &Handler{server: server, logger: logger}
}

// Routes mounts the handler on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/v1/shares/wrap", h.wrap)
	r.Post("/v1/shares/release", h.release)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt := chi.NewRouter()
	h.Routes(rt)
	rt.ServeHTTP(w, r)
}

func (h *Handler) wrap(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
	var req WrapRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	ws, err := h.server.WrapShare(r.Context(), req.Identity, req.Index, req.Share)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ws)
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
	var req seal.ShareRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	sealed, err := h.server.ReleaseShare(r.Context(), &req)
	if err != nil {
		if errors.ErrUnauthorized.Is(err) {
			h.logger.Info("share refused", "requester", requester(&req), "err", err)
		}
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ReleaseResponse{Sealed: sealed})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if httpx.StatusCode(err) >= 500 {
		h.logger.Error("key server request failed", "err", err)
	}
	httpx.WriteError(w, err, false)
}

func requester(req *seal.ShareRequest) string {
	if req.Certificate == nil {
		return ""
	}
	return req.Certificate.Requester.String()
}
