//go:build cgo

package provenance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore keeps the provenance graph in an embedded KuzuDB database.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

var _ Store = (*KuzuStore)(nil)

// NewKuzuStore opens an in-memory graph that lives as long as the store.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore opens (or creates) the graph stored at dbPath.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	// Kuzu makes the database directory but not its parents.
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("provenance: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (_ *KuzuStore, err error) {
	s := &KuzuStore{}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()
	if s.db, err = kuzu.OpenDatabase(path, kuzu.DefaultSystemConfig()); err != nil {
		return nil, fmt.Errorf("provenance: open %s: %w", path, err)
	}
	if s.conn, err = kuzu.OpenConnection(s.db); err != nil {
		return nil, fmt.Errorf("provenance: connect %s: %w", path, err)
	}
	return s, nil
}

func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	return nil
}

// ddlStatements lists node tables before the relationships between them.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Run(
		id STRING,
		title STRING,
		state STRING,
		score DOUBLE,
		iterations INT64,
		created_at INT64,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Contributor(
		id STRING,
		run_id STRING,
		contributor_id STRING,
		role STRING,
		included BOOLEAN,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Conflict(
		id STRING,
		run_id STRING,
		field STRING,
		policy STRING,
		winner STRING,
		resolved STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS SUPPLIED(FROM Run TO Contributor)`,
	`CREATE REL TABLE IF NOT EXISTS CANDIDATE(FROM Contributor TO Conflict, value STRING)`,
	`CREATE REL TABLE IF NOT EXISTS RESOLVED_IN(FROM Conflict TO Run)`,
}

// InitSchema creates the tables that do not exist yet.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, ddl := range ddlStatements {
		if err := s.run(ddl, nil, nil); err != nil {
			return fmt.Errorf("provenance: schema: %w", err)
		}
	}
	return nil
}

func (s *KuzuStore) AddRun(_ context.Context, node RunNode) error {
	return s.run(
		`CREATE (r:Run {
			id: $id,
			title: $title,
			state: $state,
			score: $score,
			iterations: $iter,
			created_at: $at
		})`,
		map[string]any{
			"id":    node.ID,
			"title": node.Title,
			"state": node.State,
			"score": node.Score,
			"iter":  int64(node.Iterations),
			"at":    node.CreatedAt.UnixMilli(),
		},
		nil,
	)
}

func (s *KuzuStore) AddContributor(_ context.Context, node ContributorNode) error {
	return s.run(
		`CREATE (c:Contributor {
			id: $id,
			run_id: $run,
			contributor_id: $cid,
			role: $role,
			included: $inc
		})`,
		map[string]any{
			"id":   node.ID,
			"run":  node.RunID,
			"cid":  node.ContributorID,
			"role": node.Role,
			"inc":  node.Included,
		},
		nil,
	)
}

func (s *KuzuStore) AddConflict(_ context.Context, node ConflictNode) error {
	return s.run(
		`CREATE (c:Conflict {
			id: $id,
			run_id: $run,
			field: $field,
			policy: $policy,
			winner: $winner,
			resolved: $resolved
		})`,
		map[string]any{
			"id":       node.ID,
			"run":      node.RunID,
			"field":    node.Field,
			"policy":   node.Policy,
			"winner":   node.Winner,
			"resolved": node.Resolved,
		},
		nil,
	)
}

// AddEdge links two existing nodes; the edge kind fixes their tables.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	params := map[string]any{
		"src": edge.SourceID,
		"dst": edge.TargetID,
	}
	var cypher string
	switch edge.Kind {
	case EdgeSupplied:
		cypher = `MATCH (a:Run {id: $src}), (b:Contributor {id: $dst})
				CREATE (a)-[:SUPPLIED]->(b)`
	case EdgeCandidate:
		cypher = `MATCH (a:Contributor {id: $src}), (b:Conflict {id: $dst})
				CREATE (a)-[:CANDIDATE {value: $val}]->(b)`
		params["val"] = edge.Value
	case EdgeResolvedIn:
		cypher = `MATCH (a:Conflict {id: $src}), (b:Run {id: $dst})
				CREATE (a)-[:RESOLVED_IN]->(b)`
	default:
		return fmt.Errorf("provenance: unsupported edge kind: %s", edge.Kind)
	}
	return s.run(cypher, params, nil)
}

// GetRun returns the run node, or nil when id is unknown.
func (s *KuzuStore) GetRun(_ context.Context, id string) (*RunNode, error) {
	var run *RunNode
	err := s.run(
		`MATCH (r:Run {id: $id})
		 RETURN r.id, r.title, r.state, r.score, r.iterations, r.created_at`,
		map[string]any{"id": id},
		func(r row) {
			run = &RunNode{
				ID:         r.str(0),
				Title:      r.str(1),
				State:      r.str(2),
				Score:      r.float(3),
				Iterations: int(r.int(4)),
				CreatedAt:  time.UnixMilli(r.int(5)).UTC(),
			}
		},
	)
	return run, err
}

func (s *KuzuStore) Contributors(_ context.Context, runID string) ([]ContributorNode, error) {
	out := []ContributorNode{}
	err := s.run(
		`MATCH (:Run {id: $run})-[:SUPPLIED]->(c:Contributor)
		 RETURN c.id, c.run_id, c.contributor_id, c.role, c.included
		 ORDER BY c.id`,
		map[string]any{"run": runID},
		func(r row) {
			out = append(out, ContributorNode{
				ID:            r.str(0),
				RunID:         r.str(1),
				ContributorID: r.str(2),
				Role:          r.str(3),
				Included:      r.bool(4),
			})
		},
	)
	return out, err
}

func (s *KuzuStore) Conflicts(_ context.Context, runID string) ([]ConflictTrail, error) {
	out := []ConflictTrail{}
	err := s.run(
		`MATCH (c:Conflict)-[:RESOLVED_IN]->(:Run {id: $run})
		 RETURN c.id, c.run_id, c.field, c.policy, c.winner, c.resolved
		 ORDER BY c.id`,
		map[string]any{"run": runID},
		func(r row) {
			out = append(out, ConflictTrail{Conflict: ConflictNode{
				ID:       r.str(0),
				RunID:    r.str(1),
				Field:    r.str(2),
				Policy:   r.str(3),
				Winner:   r.str(4),
				Resolved: r.str(5),
			}})
		},
	)
	if err != nil {
		return nil, err
	}
	for i := range out {
		trail := &out[i]
		err := s.run(
			`MATCH (p:Contributor)-[e:CANDIDATE]->(:Conflict {id: $id})
			 RETURN p.contributor_id, p.role, e.value
			 ORDER BY p.contributor_id`,
			map[string]any{"id": trail.Conflict.ID},
			func(r row) {
				trail.Candidates = append(trail.Candidates, CandidateRef{
					ContributorID: r.str(0),
					Role:          r.str(1),
					Value:         r.str(2),
				})
			},
		)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Stats counts nodes per table and edges across all relationship tables.
func (s *KuzuStore) Stats(_ context.Context) (*Stats, error) {
	var st Stats
	counts := []struct {
		query string
		into  *int
	}{
		{"MATCH (n:Run) RETURN count(n)", &st.RunCount},
		{"MATCH (n:Contributor) RETURN count(n)", &st.ContributorCount},
		{"MATCH (n:Conflict) RETURN count(n)", &st.ConflictCount},
		{"MATCH ()-[e:SUPPLIED]->() RETURN count(e)", &st.EdgeCount},
		{"MATCH ()-[e:CANDIDATE]->() RETURN count(e)", &st.EdgeCount},
		{"MATCH ()-[e:RESOLVED_IN]->() RETURN count(e)", &st.EdgeCount},
	}
	for _, c := range counts {
		err := s.run(c.query, nil, func(r row) { *c.into += int(r.int(0)) })
		if err != nil {
			return nil, err
		}
	}
	return &st, nil
}

// run executes one Cypher statement, passing each result row to each. A
// nil each discards the rows.
func (s *KuzuStore) run(cypher string, params map[string]any, each func(row)) error {
	var (
		res *kuzu.QueryResult
		err error
	)
	if params == nil {
		res, err = s.conn.Query(cypher)
	} else {
		stmt, perr := s.conn.Prepare(cypher)
		if perr != nil {
			return fmt.Errorf("provenance: prepare: %w", perr)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return fmt.Errorf("provenance: query: %w", err)
	}
	defer res.Close()

	for each != nil && res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return fmt.Errorf("provenance: read row: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return fmt.Errorf("provenance: read row: %w", err)
		}
		each(row(vals))
	}
	return nil
}

// row is one result tuple. Kuzu hands back int64, float64, bool and string
// values; anything else reads as the zero value.
type row []any

func (r row) str(i int) string {
	s, _ := r[i].(string)
	return s
}

func (r row) int(i int) int64 {
	switch n := r[i].(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	}
	return 0
}

func (r row) float(i int) float64 {
	switch n := r[i].(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func (r row) bool(i int) bool {
	b, _ := r[i].(bool)
	return b
}
