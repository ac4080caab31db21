/*
Package notify defines the notifications emitted by the document ledger and
the publishers delivering them.

Events are protobuf encoded and wrapped in an Envelope naming their kind.
Envelopes are written to the transactional outbox (package queue) together
with the state change and published after commit.
*/
package notify

import (
	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/queue"
)

const (
	KindDocumentCreated = "document_created"
	KindDocumentSigned  = "document_signed"
)

// Event is a notification payload.
type Event interface {
	proto.Message
	Kind() string
}

// DocumentCreated is emitted once a document was registered.
type DocumentCreated struct {
	DocumentID        []byte   `protobuf:"bytes,1,opt,name=document_id,json=documentId,proto3" json:"document_id"`
	Creator           []byte   `protobuf:"bytes,2,opt,name=creator,proto3" json:"creator"`
	Title             string   `protobuf:"bytes,3,opt,name=title,proto3" json:"title"`
	AuthorizedSigners [][]byte `protobuf:"bytes,4,rep,name=authorized_signers,json=authorizedSigners,proto3" json:"authorized_signers"`
	Timestamp         int64    `protobuf:"varint,5,opt,name=timestamp,proto3" json:"timestamp"`
}

func (m *DocumentCreated) Reset()         { *m = DocumentCreated{} }
func (m *DocumentCreated) String() string { return proto.CompactTextString(m) }
func (*DocumentCreated) ProtoMessage()    {}
func (*DocumentCreated) Kind() string     { return KindDocumentCreated }

// DocumentSigned is emitted for every recorded signature.
type DocumentSigned struct {
	DocumentID      []byte `protobuf:"bytes,1,opt,name=document_id,json=documentId,proto3" json:"document_id"`
	Signer          []byte `protobuf:"bytes,2,opt,name=signer,proto3" json:"signer"`
	Timestamp       int64  `protobuf:"varint,3,opt,name=timestamp,proto3" json:"timestamp"`
	TotalSignatures int64  `protobuf:"varint,4,opt,name=total_signatures,json=totalSignatures,proto3" json:"total_signatures"`
}

func (m *DocumentSigned) Reset()         { *m = DocumentSigned{} }
func (m *DocumentSigned) String() string { return proto.CompactTextString(m) }
func (*DocumentSigned) ProtoMessage()    {}
func (*DocumentSigned) Kind() string     { return KindDocumentSigned }

// Envelope carries an encoded event of given kind.
type Envelope struct {
	Kind    string `protobuf:"bytes,1,opt,name=kind,proto3" json:"kind"`
	Payload []byte `protobuf:"bytes,2,opt,name=payload,proto3" json:"payload"`
}

func (m *Envelope) Reset()         { *m = Envelope{} }
func (m *Envelope) String() string { return proto.CompactTextString(m) }
func (*Envelope) ProtoMessage()    {}

// Encode wraps the event in an envelope and serializes it.
func Encode(ev Event) ([]byte, error) {
	payload, err := proto.Marshal(ev)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "marshal %s: %s", ev.Kind(), err)
	}
	raw, err := proto.Marshal(&Envelope{Kind: ev.Kind(), Payload: payload})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "marshal envelope: %s", err)
	}
	return raw, nil
}

// Decode reverses Encode.
func Decode(raw []byte) (Event, error) {
	var env Envelope
	if err := proto.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "unmarshal envelope: %s", err)
	}
	var ev Event
	switch env.Kind {
	case KindDocumentCreated:
		ev = &DocumentCreated{}
	case KindDocumentSigned:
		ev = &DocumentSigned{}
	default:
		return nil, errors.Wrapf(errors.ErrType, "unknown event kind %q", env.Kind)
	}
	if err := proto.Unmarshal(env.Payload, ev); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "unmarshal %s: %s", env.Kind, err)
	}
	return ev, nil
}

// Emit writes the event to the outbox of given store.
func Emit(ctx docseal.Context, db docseal.KVStore, ev Event) error {
	raw, err := Encode(ev)
	if err != nil {
		return err
	}
	return queue.Put(ctx, db, raw)
}
