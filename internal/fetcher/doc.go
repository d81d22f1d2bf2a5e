// Package fetcher implements the read-through lookup in front of the cache
// store. Fetch consults the store first and only goes to the network on a
// miss; a cached body that no longer decodes into the requested type is
// treated as a miss and refetched, which also overwrites the stale entry.
// Cache write failures never change what the caller receives.
//
// Extension metadata queries bypass the cache entirely: marketplace listings
// change often and a multi-extension query has no stable key.
package fetcher
