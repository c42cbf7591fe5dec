// Package catalog provides the core abstractions for querying a catalog of packages
// published across many repositories and grouped under a shared metapackage key.
//
// This package is storage-agnostic. It defines the filter variants that can be composed
// into one metapackage query, the package record read back from storage, and the common
// error definitions and observability interfaces used by engine implementations.
//
// Filters can express:
//   - Name ranges for keyset pagination (starting from, after, before a cursor)
//   - Name prefixes
//   - Repository membership, absence and outdatedness
//   - Maintainer identity and outdatedness
//   - Ranges over the number of repositories or families carrying a metapackage
//
// Key types:
//   - Filter: one predicate against one aggregate relation
//   - Package: a concrete package entry of one repository
//   - Packages: an ordered collection of packages, grouped by metapackage key
//
// Common usage pattern:
//
//	// Second page of metapackages present in Debian but missing in Arch
//	packages, err := store.FetchByFilters(
//		ctx,
//		[]catalog.Filter{
//			catalog.NameAfter(lastSeenKey),
//			catalog.InRepository("debian_12"),
//			catalog.NotInRepository("arch"),
//		},
//		200,
//	)
//	if err != nil {
//		// handle error
//	}
//
//	for _, key := range packages.Keys() {
//		// render one metapackage
//	}
package catalog
