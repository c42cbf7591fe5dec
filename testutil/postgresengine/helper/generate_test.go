package helper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/metapackage-catalog-go/testutil/postgresengine/helper"
)

func Test_GeneratePackages_IsDeterministic_AndCoversEveryKey(t *testing.T) {
	// arrange
	ns := helper.Namespace("gen")

	// act
	first := helper.GeneratePackages(ns, 300, 7)
	second := helper.GeneratePackages(ns, 300, 7)

	// assert
	assert.Equal(t, first, second)

	keys := make(map[string]struct{})
	for _, p := range first {
		assert.Equal(t, p.EffName, p.Name)
		assert.NotNil(t, p.VersionClass)
		keys[p.EffName] = struct{}{}
	}

	assert.Len(t, keys, 300)
	assert.Contains(t, keys, ns.Key("pkg0000000"))
	assert.Contains(t, keys, ns.Key("pkg0000299"))
}
