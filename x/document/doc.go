/*
Package document implements the document ledger.

A document is registered by its creator together with the set of addresses
authorized to sign it. Every authorized signer receives a signer capability
(see package capability) that must be presented in order to sign. The status
of a document is never set directly, it is derived from the number of
signatures and the number of unique authorized signers:

	Pending   no signature was recorded yet
	Partial   some, but not all, signers signed
	Complete  every authorized signer signed

The encrypted document content is kept outside of the ledger. A document
references it by the blob reference returned by the content store, and
signers append references of signed versions to the document history.
*/
package document
