// Package cmap provides a sharded concurrent map.
//
// The query cache keeps one entry per cache key and is read far more often
// than it is written, so entries are spread over independently locked shards:
//
//	m := cmap.New[string, *entry]()
//	m.Set("cart\x1fdetail\x1fs1", e)
//	e, ok := m.Get("cart\x1fdetail\x1fs1")
//
// All operations are safe for concurrent use. Range and DeleteFunc lock one
// shard at a time, so they observe a per-shard consistent view only.
package cmap
