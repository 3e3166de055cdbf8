// Package graph wraps the Cypher-speaking graph store this warehouse
// loads into: a thin session helper around the official Neo4j driver, plus
// the hand-written property-map renderers the Cypher templates in this
// package need (Go has no reflection-based serializer comparable to serde,
// so rendering is per-type rather than generic; see DESIGN.md).
package graph

import (
	"context"
	"fmt"

	"github.com/0lnetwork/graphwarehouse/internal/errtag"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Store is a thin wrapper around a neo4j driver, giving every component in
// this warehouse a single place to open sessions and run parameterized
// Cypher statements.
type Store struct {
	driver neo4j.DriverWithContext
}

// Credentials names the connection parameters resolved from CLI flags or
// environment variables (LIBRA_GRAPH_DB_URI / _USER / _PASS).
type Credentials struct {
	URI      string
	Username string
	Password string
}

// Connect opens a driver connection and verifies connectivity immediately,
// matching the corpus's fail-fast connection-pool construction.
func Connect(ctx context.Context, creds Credentials) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(creds.URI, neo4j.BasicAuth(creds.Username, creds.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("graph: create driver: %w: %w", err, errtag.ErrFatal)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("graph: verify connectivity: %w: %w", err, errtag.ErrFatal)
	}
	return &Store{driver: driver}, nil
}

// Close releases the underlying driver's connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Run executes a single parameterized Cypher statement in its own
// auto-commit session and returns the consumed result summary's counters
// wrapped as a map for callers that need create/update counts.
func (s *Store) Run(ctx context.Context, cypher string, params map[string]any) (neo4j.ResultSummary, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("graph: run query: %w: %w", err, errtag.ErrTransport)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph: consume result: %w: %w", err, errtag.ErrTransport)
	}
	return summary, nil
}

// RunWithRecord executes a single parameterized write statement expected
// to RETURN exactly one aggregate row (e.g. counts from an UNWIND/CASE
// summary), returning that row's values alongside the usual write.
func (s *Store) RunWithRecord(ctx context.Context, cypher string, params map[string]any) (map[string]any, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("graph: run query: %w: %w", err, errtag.ErrTransport)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph: consume single result: %w: %w", err, errtag.ErrTransport)
	}
	return record.AsMap(), nil
}

// RunRead executes a read query and returns every record's values as maps,
// used by the matching engine and exchange analytics for ad-hoc queries.
func (s *Store) RunRead(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	records, err := neo4j.ExecuteQuery[*neo4j.EagerResult](ctx, s.driver, cypher, params,
		neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(""))
	if err != nil {
		return nil, fmt.Errorf("graph: run read query: %w: %w", err, errtag.ErrTransport)
	}

	out := make([]map[string]any, 0, len(records.Records))
	for _, rec := range records.Records {
		out = append(out, rec.AsMap())
	}
	return out, nil
}

// EnsureIndexes creates the uniqueness constraints this warehouse relies
// on for idempotent upserts: Account.address, Tx.tx_hash,
// SwapAccount.swap_id.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	statements := []string{
		"CREATE CONSTRAINT account_address_unique IF NOT EXISTS FOR (a:Account) REQUIRE a.address IS UNIQUE",
		"CREATE CONSTRAINT tx_hash_unique IF NOT EXISTS FOR ()-[t:Tx]-() REQUIRE t.tx_hash IS UNIQUE",
		"CREATE CONSTRAINT swap_account_id_unique IF NOT EXISTS FOR (s:SwapAccount) REQUIRE s.swap_id IS UNIQUE",
	}
	for _, stmt := range statements {
		if _, err := s.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("graph: ensure indexes: %w", err)
		}
	}
	return nil
}
