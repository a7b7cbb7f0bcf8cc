// Package types defines the character record, its resource trackers, the
// experience ledger, selection rules, the Store and AssetStore contracts, and
// standard errors for charsheet.
//
// Entity methods modify the record in memory only. Callers persist changes
// through a Store, usually by way of the autosave engine.
package types
