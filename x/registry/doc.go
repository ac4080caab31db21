/*
Package registry indexes documents by participant address.

For every address it keeps the set of documents the address created and the
set of documents the address was assigned to sign. Insertion is idempotent
and entries are never removed. The registry also owns the sequence that
allocates document ids, whose latest value is the total number of documents.
*/
package registry
