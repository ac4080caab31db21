package docsealtest

import "github.com/iov-one/docseal"

// Handler returns the configured results and counts its calls, failing
// ones included.
type Handler struct {
	CheckResult   docseal.CheckResult
	CheckErr      error
	DeliverResult docseal.DeliverResult
	DeliverErr    error

	checks, delivers int
}

var _ docseal.Handler = (*Handler)(nil)

func (h *Handler) Check(docseal.Context, docseal.KVStore, docseal.Tx) (*docseal.CheckResult, error) {
	h.checks++
	if h.CheckErr != nil {
		return nil, h.CheckErr
	}
	res := h.CheckResult
	return &res, nil
}

func (h *Handler) Deliver(docseal.Context, docseal.KVStore, docseal.Tx) (*docseal.DeliverResult, error) {
	h.delivers++
	if h.DeliverErr != nil {
		return nil, h.DeliverErr
	}
	res := h.DeliverResult
	return &res, nil
}

func (h *Handler) CheckCallCount() int   { return h.checks }
func (h *Handler) DeliverCallCount() int { return h.delivers }
func (h *Handler) CallCount() int        { return h.checks + h.delivers }
