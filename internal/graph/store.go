// Package graph is the only place that talks to Neo4j. Everything above it
// works with Store, Record and the error kinds declared here.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
)

// Store executes parameterized Cypher statements. Query runs in a read
// transaction, WriteQuery in an explicit write transaction.
type Store interface {
	Query(ctx context.Context, stmt string, params map[string]any) ([]Record, error)
	WriteQuery(ctx context.Context, stmt string, params map[string]any) ([]Record, error)
}

type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *logrus.Logger
}

func NewNeo4jStore(driver neo4j.DriverWithContext, database string, logger *logrus.Logger) *Neo4jStore {
	return &Neo4jStore{
		driver:   driver,
		database: database,
		logger:   logger,
	}
}

func (s *Neo4jStore) Query(ctx context.Context, stmt string, params map[string]any) ([]Record, error) {
	return s.execute(ctx, neo4j.AccessModeRead, stmt, params)
}

func (s *Neo4jStore) WriteQuery(ctx context.Context, stmt string, params map[string]any) ([]Record, error) {
	return s.execute(ctx, neo4j.AccessModeWrite, stmt, params)
}

func (s *Neo4jStore) execute(ctx context.Context, mode neo4j.AccessMode, stmt string, params map[string]any) ([]Record, error) {
	start := time.Now()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, stmt, params)
		if err != nil {
			return nil, err
		}

		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}

		rows := make([]Record, 0, len(records))
		for _, record := range records {
			row := make(Record, len(record.Keys))
			for i, key := range record.Keys {
				row[key] = record.Values[i]
			}
			rows = append(rows, row)
		}
		return rows, nil
	}

	var (
		out any
		err error
	)
	if mode == neo4j.AccessModeWrite {
		out, err = session.ExecuteWrite(ctx, work)
	} else {
		out, err = session.ExecuteRead(ctx, work)
	}

	queryDuration.WithLabelValues(modeLabel(mode)).Observe(time.Since(start).Seconds())

	if err != nil {
		classified := classify(stmt, err)
		s.logger.WithError(err).WithFields(logrus.Fields{
			"mode": modeLabel(mode),
			"kind": kindOf(classified),
		}).Debug("Graph query failed")
		return nil, classified
	}

	rows, ok := out.([]Record)
	if !ok {
		return nil, fmt.Errorf("graph: unexpected transaction result %T", out)
	}
	return rows, nil
}

func modeLabel(mode neo4j.AccessMode) string {
	if mode == neo4j.AccessModeWrite {
		return "write"
	}
	return "read"
}
