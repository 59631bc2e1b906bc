package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgpulse/orgpulse/pkg/orgtree"
	"github.com/orgpulse/orgpulse/server/internal/config"
)

// Startup connection attempts; the registry database may come up after us.
const (
	connectAttempts = 15
	connectWait     = 3 * time.Second
)

// postgresSource reads the registry tables directly.
type postgresSource struct {
	pool     *pgxpool.Pool
	maxDepth int
}

func newPostgresSource(ctx context.Context, cfg config.RegistryConfig) (*postgresSource, error) {
	dsn := cfg.DSN()
	if dsn == "" {
		return nil, fmt.Errorf("registry: postgres dsn env %q is empty", cfg.DSNEnv)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("registry: postgres pool: %w", err)
	}

	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			pool.Close()
			return nil, fmt.Errorf("%w: postgres ping: %w", ErrUnavailable, err)
		}
		slog.Warn("registry: postgres not ready, will retry",
			"attempt", attempt, "err", err, "retry_in", connectWait)
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(connectWait):
		}
	}
	slog.Info("registry: postgres connected")

	return &postgresSource{pool: pool, maxDepth: cfg.MaxDepth}, nil
}

type unitRow struct {
	id        int64
	name      string
	typ       string
	purpose   string
	functions []string
	parentID  *int64
}

type roleRow struct {
	unitID int64
	rec    orgtree.RoleRecord
}

type metricRow struct {
	unitID int64
	rec    orgtree.MetricRecord
}

// FetchTree implements Source. All three tables are read in one read-only
// repeatable-read transaction so the snapshot is consistent.
func (s *postgresSource) FetchTree(ctx context.Context) (*orgtree.Unit, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	units, err := queryUnits(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: units: %w", ErrUnavailable, err)
	}
	roles, err := queryRoles(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: roles: %w", ErrUnavailable, err)
	}
	metrics, err := queryMetrics(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: metrics: %w", ErrUnavailable, err)
	}

	root, err := buildTree(units, roles, metrics)
	if err != nil {
		return nil, err
	}
	return checkTree(root, s.maxDepth)
}

// Close implements Source.
func (s *postgresSource) Close() error {
	s.pool.Close()
	return nil
}

func queryUnits(ctx context.Context, tx pgx.Tx) ([]unitRow, error) {
	rows, err := tx.Query(ctx, `
SELECT id, COALESCE(name, ''), COALESCE(type, ''), COALESCE(purpose, ''), functions, parent_id
FROM units
ORDER BY id ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]unitRow, 0)
	for rows.Next() {
		var u unitRow
		var raw []byte
		if err := rows.Scan(&u.id, &u.name, &u.typ, &u.purpose, &raw, &u.parentID); err != nil {
			return nil, err
		}
		if raw != nil {
			if err := json.Unmarshal(raw, &u.functions); err != nil {
				return nil, fmt.Errorf("unit %d functions: %w", u.id, err)
			}
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func queryRoles(ctx context.Context, tx pgx.Tx) ([]roleRow, error) {
	rows, err := tx.Query(ctx, `
SELECT r.id, r.unit_id, COALESCE(r.title, ''), COALESCE(r.grade, ''), r.count, e.name
FROM roles r
LEFT JOIN employees e ON e.id = r.employee_id
WHERE r.unit_id IS NOT NULL
ORDER BY r.id ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]roleRow, 0)
	for rows.Next() {
		var r roleRow
		if err := rows.Scan(&r.rec.ID, &r.unitID, &r.rec.Title, &r.rec.Grade, &r.rec.Count, &r.rec.Occupant); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func queryMetrics(ctx context.Context, tx pgx.Tx) ([]metricRow, error) {
	rows, err := tx.Query(ctx, `
SELECT id, unit_id, COALESCE(name, ''), COALESCE(measure_type, ''), COALESCE(frequency, ''),
       COALESCE(t_q1, 0), COALESCE(t_q2, 0), COALESCE(t_q3, 0), COALESCE(t_q4, 0),
       COALESCE(a_q1, 0), COALESCE(a_q2, 0), COALESCE(a_q3, 0), COALESCE(a_q4, 0)
FROM metrics
WHERE unit_id IS NOT NULL
ORDER BY id ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]metricRow, 0)
	for rows.Next() {
		var m metricRow
		var t, a [4]float64
		if err := rows.Scan(&m.rec.ID, &m.unitID, &m.rec.Name, &m.rec.MeasureType, &m.rec.Frequency,
			&t[0], &t[1], &t[2], &t[3], &a[0], &a[1], &a[2], &a[3]); err != nil {
			return nil, err
		}
		m.rec.Targets = quarterMap(t)
		m.rec.Actuals = quarterMap(a)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func quarterMap(v [4]float64) map[string]float64 {
	out := make(map[string]float64, len(orgtree.QuarterKeys))
	for i, q := range orgtree.QuarterKeys {
		out[q] = v[i]
	}
	return out
}

var errNoRoot = errors.New("no unit without a parent")

// buildTree links flat rows into a tree. Rows are expected in id order and
// children keep that order. A unit whose parent does not exist is dropped
// (with its subtree) and logged. More than one parentless unit is an error.
// No units at all is ErrNoOrganization.
func buildTree(units []unitRow, roles []roleRow, metrics []metricRow) (*orgtree.Unit, error) {
	if len(units) == 0 {
		return nil, ErrNoOrganization
	}

	byID := make(map[int64]*orgtree.Unit, len(units))
	for _, r := range units {
		functions := r.functions
		if functions == nil {
			functions = []string{}
		}
		byID[r.id] = &orgtree.Unit{
			ID:        r.id,
			Name:      r.name,
			Type:      r.typ,
			Purpose:   r.purpose,
			Functions: functions,
			Roles:     []orgtree.Role{},
			Metrics:   []orgtree.Metric{},
			Children:  []*orgtree.Unit{},
		}
	}
	for _, r := range roles {
		if u, ok := byID[r.unitID]; ok {
			u.Roles = append(u.Roles, r.rec.Build())
		}
	}
	for _, m := range metrics {
		if u, ok := byID[m.unitID]; ok {
			u.Metrics = append(u.Metrics, m.rec.Build())
		}
	}

	var root *orgtree.Unit
	for _, r := range units {
		u := byID[r.id]
		if r.parentID == nil {
			if root != nil {
				return nil, fmt.Errorf("%w: units %q and %q both have no parent", ErrMalformed, root.Name, u.Name)
			}
			root = u
			continue
		}
		parent, ok := byID[*r.parentID]
		if !ok {
			slog.Warn("registry: dropping unit with unknown parent",
				"unit", r.name, "id", r.id, "parent_id", *r.parentID)
			continue
		}
		parent.Children = append(parent.Children, u)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, errNoRoot)
	}
	return root, nil
}
