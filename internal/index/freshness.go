package index

import "time"

// Stale reports whether the index store must be rebuilt before use. The
// store is stale when it does not exist, or when the record source was
// modified strictly after the store was. Equal timestamps are fresh. The
// decision is a pure timestamp comparison; the source is never read.
func Stale(sourceMod, storeMod time.Time, storeExists bool) bool {
	if !storeExists {
		return true
	}
	return sourceMod.After(storeMod)
}
