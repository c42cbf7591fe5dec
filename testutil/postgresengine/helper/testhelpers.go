package helper

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

var packageColumns = []string{
	"repo", "family",
	"name", "effname",
	"version", "origversion", "effversion", "versionclass",
	"maintainers", "category", "comment", "homepage", "licenses", "downloads",
	"ignorepackage", "shadow", "ignoreversion",
}

// Namespace prefixes all names a test seeds, so tests sharing one database never see each other's data.
type Namespace string

// GivenUniqueNamespace returns a Namespace no other test uses.
func GivenUniqueNamespace(t testing.TB) Namespace {
	id, err := uuid.NewV7()
	require.NoError(t, err, "error in arranging test data")

	return Namespace("t" + strings.ReplaceAll(id.String(), "-", ""))
}

// KeyPrefix is the common prefix of all metapackage keys in the Namespace.
func (ns Namespace) KeyPrefix() string {
	return string(ns) + "-"
}

// Key moves a metapackage key into the Namespace.
func (ns Namespace) Key(name string) string {
	return ns.KeyPrefix() + name
}

// Keys moves metapackage keys into the Namespace.
func (ns Namespace) Keys(names ...string) []string {
	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, ns.Key(name))
	}

	return keys
}

// Repo moves a repository or family name into the Namespace.
func (ns Namespace) Repo(name string) string {
	return string(ns) + "_" + name
}

// Maintainer moves a maintainer into the Namespace.
func (ns Namespace) Maintainer(name string) string {
	return name + "@" + string(ns)
}

// GivenFixturePackagesWereStored stores the fixture data set in ns and removes it when the test ends.
func GivenFixturePackagesWereStored(t testing.TB, ctx context.Context, pool *pgxpool.Pool, ns Namespace) []FixturePackage {
	fixtures := FixturePackages(t, ns)
	GivenPackagesWereStored(t, ctx, pool, ns, fixtures...)

	return fixtures
}

// GivenPackagesWereStored inserts package rows and removes all packages of ns when the test ends.
func GivenPackagesWereStored(t testing.TB, ctx context.Context, pool *pgxpool.Pool, ns Namespace, packages ...FixturePackage) {
	t.Cleanup(func() {
		CleanUpNamespace(t, pool, ns)
	})

	_, err := StorePackages(ctx, pool, packages)
	require.NoError(t, err, "error in arranging test data")
}

// StorePackages bulk inserts package rows with COPY and returns the number of rows stored.
func StorePackages(ctx context.Context, pool *pgxpool.Pool, packages []FixturePackage) (int64, error) {
	rows := make([][]any, 0, len(packages))
	for _, p := range packages {
		rows = append(rows, []any{
			p.Repo, p.Family,
			p.Name, p.EffName,
			p.Version, p.OrigVersion, p.EffVersion, p.VersionClass,
			p.Maintainers, p.Category, p.Comment, p.Homepage, p.Licenses, p.Downloads,
			p.IgnorePackage, p.Shadow, p.IgnoreVersion,
		})
	}

	return pool.CopyFrom(ctx, pgx.Identifier{"packages"}, packageColumns, pgx.CopyFromRows(rows))
}

// GivenRepositoryWasStored inserts one row into the repositories table and removes it when the test ends.
// A zero lastUpdate is stored as NULL.
func GivenRepositoryWasStored(
	t testing.TB,
	ctx context.Context,
	pool *pgxpool.Pool,
	name string,
	numPackages, numNewest, numOutdated, numIgnored int,
	lastUpdate time.Time,
) {

	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DELETE FROM repositories WHERE name = $1", name)
	})

	var lastUpdateValue *time.Time
	if !lastUpdate.IsZero() {
		lastUpdateValue = &lastUpdate
	}

	_, err := pool.Exec(
		ctx,
		`INSERT INTO repositories
			(name, num_packages, num_packages_newest, num_packages_outdated, num_packages_ignored, last_update)
			VALUES ($1, $2, $3, $4, $5, $6)`,
		name, numPackages, numNewest, numOutdated, numIgnored, lastUpdateValue,
	)
	require.NoError(t, err, "error in arranging test data")
}

// CountMaintainersSortedBefore returns how many maintainers sort before maintainer in the database collation.
func CountMaintainersSortedBefore(t testing.TB, ctx context.Context, pool *pgxpool.Pool, maintainer string) int {
	var count int64

	err := pool.QueryRow(ctx, "SELECT count(*) FROM maintainers WHERE maintainer < $1", maintainer).Scan(&count)
	require.NoError(t, err, "error in arranging test data")

	return int(count)
}

// CleanUpNamespace removes all packages of ns.
func CleanUpNamespace(t testing.TB, pool *pgxpool.Pool, ns Namespace) {
	if _, err := DeleteNamespace(context.Background(), pool, ns); err != nil {
		t.Logf("cleaning up namespace %s failed: %v", ns, err)
	}
}

// DeleteNamespace removes all packages of ns and returns the number of rows deleted.
func DeleteNamespace(ctx context.Context, pool *pgxpool.Pool, ns Namespace) (int64, error) {
	tag, err := pool.Exec(ctx, `DELETE FROM packages WHERE effname LIKE $1`, ns.KeyPrefix()+"%")
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}
