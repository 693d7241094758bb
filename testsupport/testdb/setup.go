package testdb

import (
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	tcpg "github.com/mpapenbr/redlight-race-go/testsupport/tcpostgres"
)

// InitTestDb returns a pool to a migrated database without stored results.
// TESTDB_URL selects an external database instead of the container.
func InitTestDb() *pgxpool.Pool {
	setup := tcpg.SetupTestDb
	if os.Getenv("TESTDB_URL") != "" {
		setup = tcpg.SetupExternalTestDb
	}
	pool := setup()
	tcpg.ClearResultTables(pool)
	return pool
}
