// Package cache implements a single-process, time-expiring key–value cache.
//
// Goals for this package:
//   - Per-entry TTL with dual expiration: an armed timer deletes the key
//     proactively, and reads expire it lazily if they get there first
//   - One mutex per cache serializes every public method and every timer
//     callback, so a stale timer can never delete a fresher value
//   - Cumulative hit/miss accounting that survives Clear
//   - Generic keys and values; keys of different dynamic types stay distinct
//   - A lazily-built process-wide instance (Shared) next to New
package cache
