package client

import (
	"github.com/iov-one/docseal/x/capability"
)

// TxRequest carries a serialized signed transaction.
type TxRequest struct {
	Tx []byte `json:"tx"`
}

// TxResponse is the result of a checked or delivered transaction.
type TxResponse struct {
	Data []byte `json:"data,omitempty"`
	Log  string `json:"log,omitempty"`
}

// ReceiptResponse is the stored result of an applied transaction.
type ReceiptResponse struct {
	Height int64  `json:"height"`
	Data   []byte `json:"data,omitempty"`
	Log    string `json:"log,omitempty"`
}

type AuthorizedResponse struct {
	Authorized bool `json:"authorized"`
}

type SignedResponse struct {
	Signed bool `json:"signed"`
}

// DocumentsResponse lists document ids in hex.
type DocumentsResponse struct {
	Documents []string `json:"documents"`
}

// CapabilitiesResponse is a page of capabilities. Next is the cursor of
// the following page, empty on the last one.
type CapabilitiesResponse struct {
	Capabilities []*capability.SignerCap `json:"capabilities"`
	Next         []byte                  `json:"next,omitempty"`
}

type NonceResponse struct {
	Nonce int64 `json:"nonce"`
}

type StatsResponse struct {
	ChainID        string `json:"chain_id"`
	Height         int64  `json:"height"`
	TotalDocuments int64  `json:"total_documents"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
