package catalog

import (
	"time"
)

/***** VersionClass *****/

// VersionClass is the freshness of a package version relative to the other packages of its metapackage.
type VersionClass int16

const (
	VersionClassOther    VersionClass = 0
	VersionClassNewest   VersionClass = 1
	VersionClassOutdated VersionClass = 2
	VersionClassIgnored  VersionClass = 3
)

// VersionClassFromStorage maps the stored versionclass value to a VersionClass.
// NULL and values outside the known encoding map to VersionClassOther.
func VersionClassFromStorage(stored *int16) VersionClass {
	if stored == nil {
		return VersionClassOther
	}

	switch VersionClass(*stored) {
	case VersionClassNewest, VersionClassOutdated, VersionClassIgnored:
		return VersionClass(*stored)
	default:
		return VersionClassOther
	}
}

// String provides a string representation of VersionClass for logging and debugging.
func (v VersionClass) String() string {
	switch v {
	case VersionClassNewest:
		return "newest"
	case VersionClassOutdated:
		return "outdated"
	case VersionClassIgnored:
		return "ignored"
	default:
		return "other"
	}
}

/***** Package *****/

// Package is one package entry of one repository, as read from storage.
type Package struct {
	Repo   string
	Family string

	Name    string
	EffName MetapackageKey

	Version      string
	OrigVersion  string
	EffVersion   string
	VersionClass VersionClass

	Maintainers []string
	Category    string
	Comment     string
	Homepage    string
	Licenses    []string
	Downloads   []string

	Ignore        bool
	Shadow        bool
	IgnoreVersion bool
}

// Packages is an ordered collection of Package entries where all entries of one metapackage are adjacent.
type Packages []Package

// Keys returns the distinct metapackage keys in the order of their first appearance.
func (p Packages) Keys() []MetapackageKey {
	keys := make([]MetapackageKey, 0)

	for i, pkg := range p {
		if i == 0 || p[i-1].EffName != pkg.EffName {
			keys = append(keys, pkg.EffName)
		}
	}

	return keys
}

// ForKey returns the adjacent entries of one metapackage.
func (p Packages) ForKey(key MetapackageKey) Packages {
	result := make(Packages, 0)

	for _, pkg := range p {
		if pkg.EffName == key {
			result = append(result, pkg)
		}
	}

	return result
}

// InRepository reports whether at least one entry belongs to repo.
func (p Packages) InRepository(repo string) bool {
	for _, pkg := range p {
		if pkg.Repo == repo {
			return true
		}
	}

	return false
}

/***** listings *****/

// MaintainerSummary aggregates the packages of one maintainer.
type MaintainerSummary struct {
	Maintainer      string
	NumPackages     int
	NumMetapackages int
}

// RepositorySummary aggregates the packages of one repository.
// LastUpdate is zero if the repository was never marked as updated.
type RepositorySummary struct {
	Name        string
	NumPackages int
	NumNewest   int
	NumOutdated int
	NumIgnored  int
	LastUpdate  time.Time
}
