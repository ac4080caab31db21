/*
Package capability implements signer capabilities.

A capability is an unguessable token bound to a single document. It is
stored under the key of its holder, so possessing a capability means that
its id can be found under the holder address. Capabilities never expire and
are not consumed by signing.
*/
package capability
