// Package storage provides the durable key-value layer of the client.
//
// The client persists very little: the credential pair and its expiry, plus
// small bookkeeping records such as the key-derivation salt. KVEngine is the
// narrow interface the token store needs:
//
//   - Get/Set/Delete/Scan for single records
//   - Apply for all-or-nothing multi-key writes, so the credential pair and
//     its expiry are always replaced or removed together
//
// BadgerEngine is the on-disk implementation. MemoryEngine keeps everything
// in process memory and is used for ephemeral sessions and tests.
package storage
