// Package catalog defines the domain model of the media catalog client:
// query descriptors and cache keys, fetched payloads and their normalized
// results, the fetch error taxonomy, image URLs, pagination trackers and
// comments.
//
// The package is pure: it performs no I/O and holds no global state.
package catalog
