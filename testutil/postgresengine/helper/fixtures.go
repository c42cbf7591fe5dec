package helper

import (
	_ "embed"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/metapackage-catalog-go/catalog"
)

//go:embed fixtures/packages.json
var packagesFixture []byte

// FixturePackage is one package row of the fixture data set, in storage representation.
type FixturePackage struct {
	Repo          string   `json:"repo"`
	Family        string   `json:"family"`
	Name          string   `json:"name"`
	EffName       string   `json:"effname"`
	Version       string   `json:"version"`
	OrigVersion   *string  `json:"origversion"`
	EffVersion    *string  `json:"effversion"`
	VersionClass  *int16   `json:"versionclass"`
	Maintainers   []string `json:"maintainers"`
	Category      *string  `json:"category"`
	Comment       *string  `json:"comment"`
	Homepage      *string  `json:"homepage"`
	Licenses      []string `json:"licenses"`
	Downloads     []string `json:"downloads"`
	IgnorePackage bool     `json:"ignorepackage"`
	Shadow        bool     `json:"shadow"`
	IgnoreVersion bool     `json:"ignoreversion"`
}

// FixturePackages loads the fixture data set with all names moved into namespace ns.
func FixturePackages(t testing.TB, ns Namespace) []FixturePackage {
	var fixtures []FixturePackage

	err := jsoniter.ConfigFastest.Unmarshal(packagesFixture, &fixtures)
	require.NoError(t, err, "error in loading the package fixtures")

	for i := range fixtures {
		fixtures[i].Repo = ns.Repo(fixtures[i].Repo)
		fixtures[i].Family = ns.Repo(fixtures[i].Family)
		fixtures[i].EffName = ns.Key(fixtures[i].EffName)

		for m := range fixtures[i].Maintainers {
			fixtures[i].Maintainers[m] = ns.Maintainer(fixtures[i].Maintainers[m])
		}
	}

	return fixtures
}

// ExpectedPackage returns the catalog.Package that a Catalog must produce for the fixture.
func (f FixturePackage) ExpectedPackage() catalog.Package {
	return catalog.Package{
		Repo:          f.Repo,
		Family:        f.Family,
		Name:          f.Name,
		EffName:       f.EffName,
		Version:       f.Version,
		OrigVersion:   deref(f.OrigVersion),
		EffVersion:    deref(f.EffVersion),
		VersionClass:  catalog.VersionClassFromStorage(f.VersionClass),
		Maintainers:   f.Maintainers,
		Category:      deref(f.Category),
		Comment:       deref(f.Comment),
		Homepage:      deref(f.Homepage),
		Licenses:      f.Licenses,
		Downloads:     f.Downloads,
		Ignore:        f.IgnorePackage,
		Shadow:        f.Shadow,
		IgnoreVersion: f.IgnoreVersion,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
