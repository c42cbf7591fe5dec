package catalog

import (
	"strings"
)

/***** Relation *****/

// Relation identifies one of the pre-aggregated relations a Filter is evaluated against.
// Every relation carries the metapackage key column, which is the only column they share.
type Relation int

const (
	// RepoMetapackages holds one row per metapackage and repository with newest/outdated/ignored counts.
	RepoMetapackages Relation = iota

	// MaintainerMetapackages holds one row per metapackage and maintainer with package counts.
	MaintainerMetapackages

	// MetapackageRepoCounts holds one row per metapackage with its distinct repository and family counts.
	MetapackageRepoCounts
)

// String returns the default relation name as created by the catalog schema.
func (r Relation) String() string {
	switch r {
	case RepoMetapackages:
		return "repo_metapackages"
	case MaintainerMetapackages:
		return "maintainer_metapackages"
	case MetapackageRepoCounts:
		return "metapackage_repocounts"
	default:
		return "unknown"
	}
}

// Column names of the aggregate relations.
const (
	ColEffName             = "effname"
	ColRepo                = "repo"
	ColMaintainer          = "maintainer"
	ColNumOutdated         = "num_outdated"
	ColNumPackagesOutdated = "num_packages_outdated"
	ColNumRepos            = "num_repos"
	ColNumFamilies         = "num_families"
)

/***** SortOrder *****/

// SortOrder is the order of metapackage keys a Filter requires to work correctly.
type SortOrder int

const (
	NoSortPreference SortOrder = iota
	SortAscending
	SortDescending
)

// String provides a string representation of SortOrder for logging and debugging.
func (s SortOrder) String() string {
	switch s {
	case SortAscending:
		return "asc"
	case SortDescending:
		return "desc"
	default:
		return "none"
	}
}

/***** Predicate *****/

// Predicate is a boolean SQL fragment with '?' placeholders and the arguments bound to them, in order.
// The fragment references its relation only through the alias it was built for.
type Predicate struct {
	SQL  string
	Args []any
}

func truePredicate() Predicate {
	return Predicate{SQL: "TRUE"}
}

// joinPredicates combines predicates with AND, keeping the arguments aligned with the placeholders.
func joinPredicates(predicates ...Predicate) Predicate {
	if len(predicates) == 0 {
		return truePredicate()
	}

	parts := make([]string, 0, len(predicates))
	args := make([]any, 0, len(predicates))

	for _, p := range predicates {
		parts = append(parts, p.SQL)
		args = append(args, p.Args...)
	}

	return Predicate{SQL: strings.Join(parts, " AND "), Args: args}
}

// QuoteIdentifier quotes a Postgres identifier, doubling embedded quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func column(alias, col string) string {
	return QuoteIdentifier(alias) + "." + QuoteIdentifier(col)
}

func compare(alias, col, operator string, val any) Predicate {
	return Predicate{SQL: column(alias, col) + " " + operator + " ?", Args: []any{val}}
}

func positive(alias, col string) Predicate {
	return Predicate{SQL: column(alias, col) + " > 0"}
}

/***** Bound *****/

// Bound is an optional inclusive limit of a numeric range.
type Bound struct {
	value int
	set   bool
}

// NoBound leaves one side of a range open.
var NoBound = Bound{}

// BoundAt returns a Bound set to n.
func BoundAt(n int) Bound {
	return Bound{value: n, set: true}
}

func (b Bound) IsSet() bool {
	return b.set
}

func (b Bound) Value() int {
	return b.value
}

func countRange(alias, col string, lowest, highest Bound) Predicate {
	conditions := make([]Predicate, 0, 2)

	if lowest.IsSet() {
		conditions = append(conditions, compare(alias, col, ">=", lowest.Value()))
	}

	if highest.IsSet() {
		conditions = append(conditions, compare(alias, col, "<=", highest.Value()))
	}

	return joinPredicates(conditions...)
}

/***** Filter *****/

// Filter is one criterion of a metapackage query, evaluated against one aggregate relation.
//
// The set of variants is closed; they are created with the constructors of this package:
//
//   - NameStartingFrom, NameAfter, NameBefore: keyset pagination cursors
//   - NameSubstring: key prefix
//   - MaintainerIs, MaintainerOutdatedBy: maintainer identity
//   - InRepository, OutdatedInRepository, InAnyRepository, NotInRepository: repository membership
//   - RepoCountBetween, FamilyCountBetween: spread over repositories and families
//
// A metapackage key matches a list of Filters only if it matches every one of them.
type Filter interface {
	// SourceRelation returns the relation the Filter is evaluated against.
	SourceRelation() Relation

	// WherePredicate returns the row predicate for the relation aliased as alias, if the Filter has one.
	WherePredicate(alias string) (Predicate, bool)

	// HavingPredicate returns the predicate over the group of joined rows of one key, if the Filter has one.
	HavingPredicate(alias string) (Predicate, bool)

	// PreferredSort returns the key order the Filter needs, or NoSortPreference.
	PreferredSort() SortOrder

	sealed()
}

type filterBase struct{}

func (filterBase) sealed() {}

func (filterBase) HavingPredicate(_ string) (Predicate, bool) {
	return Predicate{}, false
}

func (filterBase) PreferredSort() SortOrder {
	return NoSortPreference
}

/***** name cursors *****/

type nameCursor struct {
	filterBase
	cursor   MetapackageKey
	operator string
	sort     SortOrder
}

// NameStartingFrom matches keys greater than or equal to cursor, in ascending order.
// An empty cursor matches all keys.
func NameStartingFrom(cursor MetapackageKey) Filter {
	return nameCursor{cursor: cursor, operator: ">=", sort: SortAscending}
}

// NameAfter matches keys strictly greater than cursor, in ascending order.
// An empty cursor matches all keys.
func NameAfter(cursor MetapackageKey) Filter {
	return nameCursor{cursor: cursor, operator: ">", sort: SortAscending}
}

// NameBefore matches keys strictly less than cursor, in descending order.
// An empty cursor matches all keys.
func NameBefore(cursor MetapackageKey) Filter {
	return nameCursor{cursor: cursor, operator: "<", sort: SortDescending}
}

func (f nameCursor) SourceRelation() Relation {
	return RepoMetapackages
}

func (f nameCursor) WherePredicate(alias string) (Predicate, bool) {
	if f.cursor == "" {
		return truePredicate(), true
	}

	return compare(alias, ColEffName, f.operator, f.cursor), true
}

func (f nameCursor) PreferredSort() SortOrder {
	return f.sort
}

/***** name prefix *****/

type nameSubstring struct {
	filterBase
	prefix string
}

// NameSubstring matches keys starting with prefix.
// LIKE wildcards inside prefix are matched literally.
func NameSubstring(prefix string) Filter {
	return nameSubstring{prefix: prefix}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (f nameSubstring) SourceRelation() Relation {
	return RepoMetapackages
}

func (f nameSubstring) WherePredicate(alias string) (Predicate, bool) {
	if f.prefix == "" {
		return truePredicate(), true
	}

	return compare(alias, ColEffName, "LIKE", likeEscaper.Replace(f.prefix)+"%"), true
}

/***** maintainer *****/

type maintainer struct {
	filterBase
	maintainer   string
	outdatedOnly bool
}

// MaintainerIs matches keys with at least one package maintained by m.
func MaintainerIs(m string) Filter {
	return maintainer{maintainer: m}
}

// MaintainerOutdatedBy matches keys with at least one outdated package maintained by m.
func MaintainerOutdatedBy(m string) Filter {
	return maintainer{maintainer: m, outdatedOnly: true}
}

func (f maintainer) SourceRelation() Relation {
	return MaintainerMetapackages
}

func (f maintainer) WherePredicate(alias string) (Predicate, bool) {
	if f.outdatedOnly {
		return joinPredicates(
			compare(alias, ColMaintainer, "=", f.maintainer),
			positive(alias, ColNumPackagesOutdated),
		), true
	}

	return compare(alias, ColMaintainer, "=", f.maintainer), true
}

/***** repository membership *****/

type inRepository struct {
	filterBase
	repo         string
	outdatedOnly bool
}

// InRepository matches keys with at least one package in repository r.
func InRepository(r string) Filter {
	return inRepository{repo: r}
}

// OutdatedInRepository matches keys with at least one outdated package in repository r.
func OutdatedInRepository(r string) Filter {
	return inRepository{repo: r, outdatedOnly: true}
}

func (f inRepository) SourceRelation() Relation {
	return RepoMetapackages
}

func (f inRepository) WherePredicate(alias string) (Predicate, bool) {
	if f.outdatedOnly {
		return joinPredicates(
			compare(alias, ColRepo, "=", f.repo),
			positive(alias, ColNumOutdated),
		), true
	}

	return compare(alias, ColRepo, "=", f.repo), true
}

type inAnyRepository struct {
	filterBase
	repos []string
}

// InAnyRepository matches keys with at least one package in any of the repositories rs.
// Without repositories it matches all keys.
func InAnyRepository(rs ...string) Filter {
	return inAnyRepository{repos: append([]string(nil), rs...)}
}

func (f inAnyRepository) SourceRelation() Relation {
	return RepoMetapackages
}

func (f inAnyRepository) WherePredicate(alias string) (Predicate, bool) {
	if len(f.repos) == 0 {
		return truePredicate(), true
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.repos)), ", ")
	args := make([]any, 0, len(f.repos))
	for _, repo := range f.repos {
		args = append(args, repo)
	}

	return Predicate{SQL: column(alias, ColRepo) + " IN (" + placeholders + ")", Args: args}, true
}

type notInRepository struct {
	filterBase
	repo string
}

// NotInRepository matches keys for which no row surviving the other joined Filters belongs to repository r.
//
// Absence is evaluated per key over the already joined rows, after grouping, because an inner
// join against the relation could only ever produce rows of r. A key is therefore not excluded
// because of a row in r that the other Filters have already discarded.
func NotInRepository(r string) Filter {
	return notInRepository{repo: r}
}

func (f notInRepository) SourceRelation() Relation {
	return RepoMetapackages
}

func (f notInRepository) WherePredicate(_ string) (Predicate, bool) {
	return Predicate{}, false
}

func (f notInRepository) HavingPredicate(alias string) (Predicate, bool) {
	return Predicate{
		SQL:  "count(nullif(" + column(alias, ColRepo) + " = ?, false)) = 0",
		Args: []any{f.repo},
	}, true
}

/***** repository and family counts *****/

type countBetween struct {
	filterBase
	col     string
	lowest  Bound
	highest Bound
}

// RepoCountBetween matches keys present in at least lowest and at most highest distinct repositories.
// Either side may be NoBound.
func RepoCountBetween(lowest, highest Bound) Filter {
	return countBetween{col: ColNumRepos, lowest: lowest, highest: highest}
}

// FamilyCountBetween matches keys present in at least lowest and at most highest distinct repository families.
// Either side may be NoBound.
func FamilyCountBetween(lowest, highest Bound) Filter {
	return countBetween{col: ColNumFamilies, lowest: lowest, highest: highest}
}

func (f countBetween) SourceRelation() Relation {
	return MetapackageRepoCounts
}

func (f countBetween) WherePredicate(alias string) (Predicate, bool) {
	return countRange(alias, f.col, f.lowest, f.highest), true
}
