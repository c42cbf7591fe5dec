package catalog

import (
	"errors"
)

// DefaultLimit is the number of metapackage keys returned when the caller supplies no positive limit.
const DefaultLimit = 500

var ErrSortOrderConflict = errors.New("sort order conflict: composed filters declare different sort orders")
var ErrNilDatabaseConnection = errors.New("database connection is nil")
var ErrEmptyRelationName = errors.New("empty relation name supplied")
var ErrBuildingQueryFailed = errors.New("building the query failed")
var ErrBeginningSessionFailed = errors.New("beginning the read session failed")
var ErrQueryingKeysFailed = errors.New("querying metapackage keys failed")
var ErrQueryingPackagesFailed = errors.New("querying packages failed")
var ErrQueryingListingFailed = errors.New("querying listing failed")
var ErrScanningDBRowFailed = errors.New("scanning db row failed")
var ErrCommittingSessionFailed = errors.New("committing the read session failed")

// MetapackageKey is a type alias for string, representing the canonical name shared by equivalent packages.
type MetapackageKey = string
