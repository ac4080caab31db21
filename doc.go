/*
Package docseal defines the interfaces shared by the document signing ledger:
storage, messages and transactions, handlers and decorators, addresses and
the context helpers every extension relies on.

State lives in a KVStore. Each extension (see x/) owns a few prefixed buckets
in it and registers handlers for its messages. Handlers never touch the
external blob store or the encryption service, those are driven from the
workflow package which talks to the ledger only through signed transactions.
*/
package docseal
