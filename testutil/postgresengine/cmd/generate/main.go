package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AntonStoeckl/metapackage-catalog-go/testutil/postgresengine/config"
	"github.com/AntonStoeckl/metapackage-catalog-go/testutil/postgresengine/helper"
)

const (
	tenThousand     = 10000
	hundredThousand = tenThousand * 10

	// NumMetapackages - Number of synthetic metapackages to be created - adapt as needed.
	// Each one gets about 3.5 packages, spread over 8 repositories.
	NumMetapackages = 2 * hundredThousand

	// BatchSize - Number of metapackages copied into the database per COPY.
	BatchSize = tenThousand

	// Seed - the same seed always generates the same data set.
	Seed = 20250314

	// Namespace - all generated keys, repositories and maintainers live in this namespace, don't change.
	// Keys are prefixed with "bench-", so integration tests never see them.
	Namespace = helper.Namespace("bench")
)

func main() {
	if err := GenerateBenchmarkPackages(); err != nil {
		log.Fatalf("Error generating benchmark packages: %v", err)
	}
}

func GenerateBenchmarkPackages() error {
	startTime := time.Now()
	ctx := context.Background()

	fmt.Println("🚀 Starting benchmark package generation")
	fmt.Printf("📊 Metapackages to generate: %s\n", formatNumber(NumMetapackages))
	fmt.Println()

	fmt.Printf("🔗\tConnecting to database...")
	poolConfig, err := config.PostgresPGXPoolTestConfig()
	if err != nil {
		return fmt.Errorf("failed to read database config: %w", err)
	}

	connPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer connPool.Close()
	fmt.Println(" ✅")

	fmt.Printf("🔧\tEnsuring schema...")
	if err = helper.EnsureSchema(ctx, connPool); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	fmt.Println(" ✅")

	fmt.Printf("🧹\tClearing previously generated packages...")
	deleted, err := helper.DeleteNamespace(ctx, connPool, Namespace)
	if err != nil {
		return fmt.Errorf("failed to clear packages: %w", err)
	}
	fmt.Printf(" ✅ %s rows\n", formatNumber(int(deleted)))

	fmt.Printf("📥\tCopying packages...")
	copyStart := time.Now()
	packages := helper.GeneratePackages(Namespace, NumMetapackages, Seed)

	var stored int64
	for start := 0; start < len(packages); start += BatchSize * 3 {
		end := min(start+BatchSize*3, len(packages))

		n, copyErr := helper.StorePackages(ctx, connPool, packages[start:end])
		if copyErr != nil {
			return fmt.Errorf("failed to copy packages: %w", copyErr)
		}

		stored += n
	}
	fmt.Printf(" ✅ %v\n", time.Since(copyStart).Round(time.Millisecond))

	fmt.Printf("📊\tUpdating table statistics...")
	if _, err = connPool.Exec(ctx, "ANALYZE packages"); err != nil {
		return fmt.Errorf("failed to analyze table: %w", err)
	}
	fmt.Println(" ✅")

	fmt.Println()
	fmt.Printf("Generation completed! 🎉\n")
	fmt.Printf("Total packages stored: %s 📊\n", formatNumber(int(stored)))
	fmt.Printf("Total time: %v ⏱️\n", time.Since(startTime).Round(time.Millisecond))

	return nil
}

func formatNumber(n int) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.1fM", float64(n)/1000000.0)
	} else if n >= 100000 {
		return fmt.Sprintf("%.0fK", float64(n)/1000)
	} else if n >= 10000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return strconv.Itoa(n)
}
