package postgresengine

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/AntonStoeckl/metapackage-catalog-go/catalog"
)

const relationCount = int(catalog.MetapackageRepoCounts) + 1

// maxAliasPrefixLength leaves room for the position suffix within PostgreSQL's 63 byte identifier limit.
const maxAliasPrefixLength = 55

// ComposedQuery is an executable metapackage key query built from a list of filters.
type ComposedQuery struct {
	SQL   string
	Args  []any
	Sort  catalog.SortOrder
	Limit int
}

// QueryComposer merges an ordered list of catalog.Filter(s) and a limit into one ComposedQuery.
// It holds only the relation names, so one value can be shared by concurrent callers.
type QueryComposer struct {
	relations [relationCount]string
}

// NewQueryComposer creates a QueryComposer using the default relation names.
func NewQueryComposer() QueryComposer {
	qc := QueryComposer{}

	for r := range relationCount {
		qc.relations[r] = catalog.Relation(r).String()
	}

	return qc
}

// WithRelationName returns a copy of the QueryComposer reading relation from the table or view called name.
func (qc QueryComposer) WithRelationName(relation catalog.Relation, name string) (QueryComposer, error) {
	if name == "" {
		return qc, catalog.ErrEmptyRelationName
	}

	if int(relation) < 0 || int(relation) >= relationCount {
		return qc, fmt.Errorf("unknown relation %d", relation)
	}

	qc.relations[relation] = name

	return qc, nil
}

// RelationName returns the table or view name the QueryComposer reads relation from.
func (qc QueryComposer) RelationName(relation catalog.Relation) string {
	return qc.relations[relation]
}

// Compose builds the query selecting the distinct metapackage keys that match all filters.
//
// Every filter's relation is aliased by name and position and inner joined to the first one on
// the metapackage key, so a key survives only if it is present in every relation. WHERE predicates
// are combined with AND in filter order. If any filter has a HAVING predicate, the joined rows are
// grouped by key before those predicates are applied. A limit <= 0 falls back to catalog.DefaultLimit.
// Filters declaring different sort orders fail with catalog.ErrSortOrderConflict.
func (qc QueryComposer) Compose(filters []catalog.Filter, limit int) (ComposedQuery, error) {
	if limit <= 0 {
		limit = catalog.DefaultLimit
	}

	if len(filters) == 0 {
		filters = []catalog.Filter{catalog.NameStartingFrom("")}
	}

	sortOrder, sortErr := resolveSortOrder(filters)
	if sortErr != nil {
		return ComposedQuery{}, sortErr
	}

	var selectStmt *goqu.SelectDataset
	whereExpressions := make([]goqu.Expression, 0, len(filters))
	havingExpressions := make([]goqu.Expression, 0)

	for position, filter := range filters {
		relationName := qc.relations[filter.SourceRelation()]
		alias := aliasFor(relationName, position)
		table := relationIdentifier(relationName).As(alias)

		if selectStmt == nil {
			selectStmt = goqu.Dialect(dialectPostgres).From(table)
		} else {
			selectStmt = selectStmt.InnerJoin(table, goqu.Using(catalog.ColEffName))
		}

		if predicate, ok := filter.WherePredicate(alias); ok {
			whereExpressions = append(whereExpressions, predicateExpression(predicate))
		}

		if predicate, ok := filter.HavingPredicate(alias); ok {
			havingExpressions = append(havingExpressions, predicateExpression(predicate))
		}
	}

	selectStmt = selectStmt.
		Select(goqu.C(catalog.ColEffName)).
		Distinct()

	if len(whereExpressions) > 0 {
		selectStmt = selectStmt.Where(whereExpressions...)
	}

	if len(havingExpressions) > 0 {
		selectStmt = selectStmt.
			GroupBy(goqu.C(catalog.ColEffName)).
			Having(havingExpressions...)
	}

	switch sortOrder {
	case catalog.SortDescending:
		selectStmt = selectStmt.Order(goqu.C(catalog.ColEffName).Desc())
	default:
		selectStmt = selectStmt.Order(goqu.C(catalog.ColEffName).Asc())
	}

	sqlQuery, args, toSQLErr := selectStmt.
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()

	if toSQLErr != nil {
		return ComposedQuery{}, errors.Join(catalog.ErrBuildingQueryFailed, toSQLErr)
	}

	return ComposedQuery{
		SQL:   sqlQuery,
		Args:  args,
		Sort:  sortOrder,
		Limit: limit,
	}, nil
}

// resolveSortOrder returns the single sort order declared by the filters, ascending if none declares one.
func resolveSortOrder(filters []catalog.Filter) (catalog.SortOrder, error) {
	resolved := catalog.NoSortPreference

	for _, filter := range filters {
		preferred := filter.PreferredSort()

		switch {
		case preferred == catalog.NoSortPreference:
			continue
		case resolved == catalog.NoSortPreference:
			resolved = preferred
		case resolved != preferred:
			return catalog.NoSortPreference, catalog.ErrSortOrderConflict
		}
	}

	if resolved == catalog.NoSortPreference {
		return catalog.SortAscending, nil
	}

	return resolved, nil
}

// aliasFor names the join of relationName at position, truncating long names so the position survives.
func aliasFor(relationName string, position int) string {
	prefix := strings.ReplaceAll(relationName, ".", "_")

	if len(prefix) > maxAliasPrefixLength {
		cut := maxAliasPrefixLength
		for cut > 0 && !utf8.RuneStart(prefix[cut]) {
			cut--
		}

		prefix = prefix[:cut]
	}

	return fmt.Sprintf("%s%d", prefix, position)
}

// relationIdentifier supports schema qualified relation names like "stats.repocounts".
func relationIdentifier(name string) exp.IdentifierExpression {
	if schema, table, qualified := strings.Cut(name, "."); qualified {
		return goqu.S(schema).Table(table)
	}

	return goqu.T(name)
}

// predicateExpression turns a catalog.Predicate into a goqu literal, parenthesized so it combines safely with AND.
func predicateExpression(predicate catalog.Predicate) goqu.Expression {
	return goqu.L("("+predicate.SQL+")", predicate.Args...)
}
