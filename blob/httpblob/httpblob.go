/*
Package httpblob talks to a blob store over HTTP.

Uploads go to a publisher and downloads to an aggregator, which may be the
same server:

	PUT /v1/blobs          body: raw bytes        -> {"blob_ref": "<ref>"}
	GET /v1/blobs/{ref}                           -> raw bytes

Handler serves this protocol on top of any blob.Store.
*/
package httpblob

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/iov-one/docseal/blob"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/httpx"
	"github.com/tendermint/tendermint/libs/log"
)

// DefaultMaxSize limits the size of a single blob.
const DefaultMaxSize = 32 << 20

// PutResponse is returned by the publisher.
type PutResponse struct {
	BlobRef string `json:"blob_ref"`
}

// Client is a blob.Store using a remote publisher and aggregator.
type Client struct {
	publisher  string
	aggregator string
	http       *http.Client
}

var _ blob.Store = (*Client)(nil)

// NewClient returns a client of given servers. A nil http client is
// replaced with one using a 30 second timeout.
func NewClient(publisherURL, aggregatorURL string, c *http.Client) *Client {
	if c == nil {
		c = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		publisher:  strings.TrimRight(publisherURL, "/"),
		aggregator: strings.TrimRight(aggregatorURL, "/"),
		http:       c,
	}
}

func (c *Client) Put(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.Wrap(errors.ErrEmpty, "blob")
	}
	req, err := http.NewRequest(http.MethodPut, c.publisher+"/v1/blobs", bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(errors.ErrInput, err.Error())
	}
	req.Header.Set("content-type", "application/octet-stream")

	resp, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var res PutResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", errors.Wrapf(errors.ErrStorage, "decode publisher response: %s", err)
	}
	if res.BlobRef != blob.RefOf(data) {
		return "", errors.Wrapf(errors.ErrStorage, "publisher returned reference %q", res.BlobRef)
	}
	return res.BlobRef, nil
}

func (c *Client) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := blob.ValidateRef(ref); err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodGet, c.aggregator+"/v1/blobs/"+ref, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := ioutil.ReadAll(io.LimitReader(resp.Body, DefaultMaxSize+1))
	if err != nil {
		return nil, errors.Wrap(errors.ErrNetwork, err.Error())
	}
	if err := blob.Verify(ref, data); err != nil {
		return nil, err
	}
	return data, nil
}

// do sends the request and turns every failure into a classified error.
// The response is returned only for 2xx statuses.
func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrTimeout, ctx.Err().Error())
		}
		return nil, errors.Wrap(errors.ErrNetwork, err.Error())
	}
	if resp.StatusCode/100 == 2 {
		return resp, nil
	}
	defer resp.Body.Close()
	err = httpx.DecodeError(resp)
	if resp.StatusCode >= 500 && !errors.IsTransient(err) {
		// The server failed to store or serve the blob.
		err = errors.Wrap(errors.ErrStorage, err.Error())
	}
	return nil, err
}

// Handler serves the blob protocol on top of a store.
type Handler struct {
	store   blob.Store
	logger  log.Logger
	maxSize int64
}

// NewHandler returns a handler storing blobs in given store.
func NewHandler(store blob.Store, logger log.Logger) *Handler {
	return &Handler{
		store:   store,
		logger:  logger,
		maxSize: DefaultMaxSize,
	}
}

// Routes mounts the handler on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Put("/v1/blobs", h.put)
	r.Get("/v1/blobs/{ref}", h.get)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt := chi.NewRouter()
	h.Routes(rt)
	rt.ServeHTTP(w, r)
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	data, err := ioutil.ReadAll(http.MaxBytesReader(w, r.Body, h.maxSize))
	if err != nil {
		h.fail(w, errors.Wrapf(errors.ErrInput, "read blob: %s", err))
		return
	}
	ref, err := h.store.Put(r.Context(), data)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Debug("blob stored", "ref", ref, "size", len(data))
	httpx.WriteJSON(w, http.StatusCreated, PutResponse{BlobRef: ref})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.Get(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("content-type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if httpx.StatusCode(err) >= 500 {
		h.logger.Error("blob request failed", "err", err)
	}
	httpx.WriteError(w, err, false)
}
