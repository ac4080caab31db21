/*
Package handlers implements the docseald HTTP API on top of a ledger.

Every failure is written with httpx.WriteError, so the client package can
rebuild the registered error of a failed request.
*/
package handlers

import (
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/app"
	"github.com/iov-one/docseal/client"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/httpx"
	"github.com/iov-one/docseal/x/capability"
	"github.com/iov-one/docseal/x/document"
	"github.com/iov-one/docseal/x/registry"
	"github.com/iov-one/docseal/x/sigs"
	"github.com/tendermint/tendermint/libs/log"
)

// maxTxSize limits the body of transaction requests.
const maxTxSize = 1 << 20

// maxPageSize limits the number of capabilities returned at once.
const maxPageSize = 100

func init() {
	httpx.RegisterStatus(document.ErrAlreadySigned, http.StatusConflict)
	httpx.RegisterStatus(capability.ErrCapabilityNotFound, http.StatusForbidden)
	httpx.RegisterStatus(sigs.ErrInvalidSequence, http.StatusConflict)
}

// NewRouter returns the API router. Extra mounts, like the blob handler
// or metrics, are added by the caller.
func NewRouter(l *app.Ledger, logger log.Logger, debug bool) chi.Router {
	base := base{Ledger: l, Logger: logger, Debug: debug}

	rt := chi.NewRouter()
	rt.Use(middleware.Recoverer)
	rt.Method(http.MethodPost, "/txs", &DeliverHandler{base})
	rt.Method(http.MethodPost, "/txs/check", &CheckHandler{base})
	rt.Method(http.MethodGet, "/txs/{hash}", &ReceiptHandler{base})
	rt.Method(http.MethodGet, "/documents/{id}", &DocumentHandler{base})
	rt.Method(http.MethodGet, "/documents/{id}/authorized/{address}", &AuthorizedHandler{base})
	rt.Method(http.MethodGet, "/documents/{id}/signed/{address}", &SignedHandler{base})
	rt.Method(http.MethodGet, "/accounts/{address}/created", &CreatedHandler{base})
	rt.Method(http.MethodGet, "/accounts/{address}/assigned", &AssignedHandler{base})
	rt.Method(http.MethodGet, "/accounts/{address}/capabilities", &CapabilitiesHandler{base})
	rt.Method(http.MethodGet, "/accounts/{address}/nonce", &NonceHandler{base})
	rt.Method(http.MethodGet, "/stats", &StatsHandler{base})
	rt.Method(http.MethodGet, "/health", &HealthHandler{base})
	return rt
}

type base struct {
	Ledger *app.Ledger
	Logger log.Logger
	Debug  bool
}

func (b base) fail(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.StatusCode(err) >= 500 {
		b.Logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	httpx.WriteError(w, err, b.Debug)
}

type DeliverHandler struct {
	base
}

func (h *DeliverHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := readTx(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.Ledger.Deliver(r.Context(), raw)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, client.TxResponse{Data: res.Data, Log: res.Log})
}

type CheckHandler struct {
	base
}

func (h *CheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := readTx(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.Ledger.Check(r.Context(), raw)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, client.TxResponse{Data: res.Data, Log: res.Log})
}

// ReceiptHandler answers whether a transaction was applied. Clients that
// lost the response of a delivery ask it before sending again.
type ReceiptHandler struct {
	base
}

func (h *ReceiptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hash, err := hex.DecodeString(chi.URLParam(r, "hash"))
	if err != nil {
		h.fail(w, r, errors.Field("hash", errors.ErrInput, "must be hex encoded"))
		return
	}
	rec, err := h.Ledger.Receipt(hash)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, client.ReceiptResponse{Height: rec.Height, Data: rec.Data, Log: rec.Log})
}

func readTx(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTxSize)
	var req client.TxRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		return nil, err
	}
	if len(req.Tx) == 0 {
		return nil, errors.Field("tx", errors.ErrEmpty, "required")
	}
	return req.Tx, nil
}

type DocumentHandler struct {
	base
}

func (h *DocumentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var doc *document.Document
	err = h.Ledger.View(func(db docseal.ReadOnlyKVStore) error {
		doc, err = document.Get(db, id)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, doc)
}

type AuthorizedHandler struct {
	base
}

func (h *AuthorizedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, addr, err := documentAndAddress(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var ok bool
	err = h.Ledger.View(func(db docseal.ReadOnlyKVStore) error {
		ok, err = document.IsAuthorized(db, id, addr)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, client.AuthorizedResponse{Authorized: ok})
}

type SignedHandler struct {
	base
}

func (h *SignedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, addr, err := documentAndAddress(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var ok bool
	err = h.Ledger.View(func(db docseal.ReadOnlyKVStore) error {
		ok, err = document.HasSigned(db, id, addr)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, client.SignedResponse{Signed: ok})
}

type CreatedHandler struct {
	base
}

func (h *CreatedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, registry.LookupCreated)
}

type AssignedHandler struct {
	base
}

func (h *AssignedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, registry.LookupAssigned)
}

func (b base) lookup(w http.ResponseWriter, r *http.Request, fn func(docseal.ReadOnlyKVStore, docseal.Address) ([][]byte, error)) {
	addr, err := address(r)
	if err != nil {
		b.fail(w, r, err)
		return
	}
	var ids [][]byte
	err = b.Ledger.View(func(db docseal.ReadOnlyKVStore) error {
		ids, err = fn(db, addr)
		return err
	})
	if err != nil {
		b.fail(w, r, err)
		return
	}
	res := client.DocumentsResponse{Documents: make([]string, len(ids))}
	for i, id := range ids {
		res.Documents[i] = hex.EncodeToString(id)
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type CapabilitiesHandler struct {
	base
}

func (h *CapabilitiesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	holder, err := address(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	var after []byte
	if s := q.Get("after"); s != "" {
		if after, err = hex.DecodeString(s); err != nil {
			h.fail(w, r, errors.Field("after", errors.ErrInput, "must be hex encoded"))
			return
		}
	}
	limit := maxPageSize
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			h.fail(w, r, errors.Field("limit", errors.ErrInput, "must be a positive integer"))
			return
		}
		if n < limit {
			limit = n
		}
	}

	var (
		caps []*capability.SignerCap
		next []byte
	)
	err = h.Ledger.View(func(db docseal.ReadOnlyKVStore) error {
		caps, next, err = capability.List(db, holder, after, limit)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, client.CapabilitiesResponse{Capabilities: caps, Next: next})
}

type NonceHandler struct {
	base
}

func (h *NonceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	addr, err := address(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var nonce int64
	err = h.Ledger.View(func(db docseal.ReadOnlyKVStore) error {
		nonce, err = sigs.NextNonce(db, addr)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, client.NonceResponse{Nonce: nonce})
}

type StatsHandler struct {
	base
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	info, err := h.Ledger.CommitInfo()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var total int64
	err = h.Ledger.View(func(db docseal.ReadOnlyKVStore) error {
		total, err = registry.TotalDocuments(db)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, client.StatsResponse{
		ChainID:        h.Ledger.ChainID(),
		Height:         info.Version,
		TotalDocuments: total,
	})
}

type HealthHandler struct {
	base
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Ledger.ChainID() == "" {
		h.fail(w, r, errors.Wrap(errors.ErrState, "ledger not initialized"))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, client.HealthResponse{Status: "ok", Version: docseal.Version()})
}

func documentID(r *http.Request) ([]byte, error) {
	id, err := hex.DecodeString(chi.URLParam(r, "id"))
	if err != nil || len(id) == 0 {
		return nil, errors.Field("id", errors.ErrInput, "must be a hex encoded document id")
	}
	return id, nil
}

func address(r *http.Request) (docseal.Address, error) {
	addr, err := docseal.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		return nil, errors.Field("address", err, "invalid")
	}
	return addr, nil
}

func documentAndAddress(r *http.Request) ([]byte, docseal.Address, error) {
	id, err := documentID(r)
	if err != nil {
		return nil, nil, err
	}
	addr, err := address(r)
	if err != nil {
		return nil, nil, err
	}
	return id, addr, nil
}
