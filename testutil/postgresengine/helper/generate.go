package helper

import (
	"fmt"
	"math/rand/v2"
)

type generatedRepo struct {
	name     string
	family   string
	presence float64
}

var generatedRepos = []generatedRepo{
	{name: "debian", family: "debuntu", presence: 0.6},
	{name: "ubuntu", family: "debuntu", presence: 0.55},
	{name: "fedora", family: "fedora", presence: 0.5},
	{name: "arch", family: "arch", presence: 0.5},
	{name: "alpine", family: "alpine", presence: 0.3},
	{name: "freebsd", family: "freebsd", presence: 0.35},
	{name: "nix", family: "nix", presence: 0.45},
	{name: "gentoo", family: "gentoo", presence: 0.25},
}

const generatedMaintainers = 500

// GeneratePackages returns a synthetic data set of numKeys metapackages in ns, spread over a fixed set of
// repositories. The same seed always yields the same rows. Every key has at least one package.
func GeneratePackages(ns Namespace, numKeys int, seed uint64) []FixturePackage {
	rnd := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec
	packages := make([]FixturePackage, 0, numKeys*3)

	for k := range numKeys {
		key := ns.Key(fmt.Sprintf("pkg%07d", k))
		newest := fmt.Sprintf("%d.%d.%d", 1+rnd.IntN(20), rnd.IntN(30), rnd.IntN(10))
		before := len(packages)

		for r, repo := range generatedRepos {
			if rnd.Float64() >= repo.presence && !(r == len(generatedRepos)-1 && len(packages) == before) {
				continue
			}

			p := FixturePackage{
				Repo:         ns.Repo(repo.name),
				Family:       ns.Repo(repo.family),
				Name:         key,
				EffName:      key,
				Version:      newest,
				VersionClass: versionClassPtr(1),
				Maintainers:  []string{ns.Maintainer(fmt.Sprintf("m%03d", rnd.IntN(generatedMaintainers)))},
				Shadow:       rnd.IntN(50) == 0,
			}

			switch n := rnd.IntN(10); {
			case n < 2:
				p.Version = "0." + newest
				p.VersionClass = versionClassPtr(2)
			case n == 2:
				p.VersionClass = versionClassPtr(3)
				p.IgnorePackage = true
			}

			packages = append(packages, p)
		}
	}

	return packages
}

func versionClassPtr(v int16) *int16 {
	return &v
}
