// Package database provides test helpers for constructing a
// database.Client backed by an isolated PostgreSQL schema.
package database

import (
	"testing"

	"github.com/codeready-toolchain/simulator/pkg/database"
	"github.com/codeready-toolchain/simulator/test/util"
)

// NewTestClient creates a test database client against a freshly migrated,
// per-test schema. The underlying container/connection is cleaned up
// automatically when the test ends.
func NewTestClient(t *testing.T) *database.Client {
	t.Helper()
	db := util.SetupTestDatabase(t)
	return database.NewClientFromDB(db)
}
