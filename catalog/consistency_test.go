package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/metapackage-catalog-go/catalog"
)

func Test_GetConsistencyLevel(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, catalog.StrongConsistency, catalog.GetConsistencyLevel(ctx))
	assert.Equal(t, catalog.EventualConsistency, catalog.GetConsistencyLevel(catalog.WithEventualConsistency(ctx)))
	assert.Equal(
		t,
		catalog.StrongConsistency,
		catalog.GetConsistencyLevel(catalog.WithStrongConsistency(catalog.WithEventualConsistency(ctx))),
	)
}

func Test_ConsistencyLevel_String(t *testing.T) {
	assert.Equal(t, "strong", catalog.StrongConsistency.String())
	assert.Equal(t, "eventual", catalog.EventualConsistency.String())
	assert.Equal(t, "unknown", catalog.ConsistencyLevel(42).String())
}
