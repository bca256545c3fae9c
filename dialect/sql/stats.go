package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nvt2106/magicstore/dialect"
)

// Statement kinds counted by QueryStats.
const (
	KindCreate = "create"
	KindSelect = "select"
	KindInsert = "insert"
	KindUpdate = "update"
	KindDelete = "delete"
	KindOther  = "other"
)

// DefaultSlowThreshold is the slow statement threshold of a StatsDriver.
const DefaultSlowThreshold = 100 * time.Millisecond

// TableStats holds the counters of the statements that touched one table.
type TableStats struct {
	Statements int64         `json:"statements"`
	Errors     int64         `json:"errors"`
	Duration   time.Duration `json:"duration"`
}

// QueryStats counts the statements sent through a StatsDriver, in total,
// by statement kind and by table. It is safe for concurrent use.
type QueryStats struct {
	mu       sync.Mutex
	queries  int64
	execs    int64
	slow     int64
	errors   int64
	duration time.Duration
	kinds    map[string]int64
	tables   map[string]*TableStats
}

func (s *QueryStats) add(st stmtInfo, query bool, d time.Duration, slow bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if query {
		s.queries++
	} else {
		s.execs++
	}
	s.duration += d
	if slow {
		s.slow++
	}
	if err != nil {
		s.errors++
	}
	if s.kinds == nil {
		s.kinds = make(map[string]int64)
		s.tables = make(map[string]*TableStats)
	}
	s.kinds[st.kind]++
	if st.table == "" {
		return
	}
	t, ok := s.tables[st.table]
	if !ok {
		t = &TableStats{}
		s.tables[st.table] = t
	}
	t.Statements++
	t.Duration += d
	if err != nil {
		t.Errors++
	}
}

// Stats returns a copy of the current counters.
func (s *QueryStats) Stats() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StatsSnapshot{
		TotalQueries:  s.queries,
		TotalExecs:    s.execs,
		TotalDuration: s.duration,
		SlowQueries:   s.slow,
		Errors:        s.errors,
	}
	if len(s.kinds) > 0 {
		snap.Kinds = make(map[string]int64, len(s.kinds))
		for k, n := range s.kinds {
			snap.Kinds[k] = n
		}
	}
	if len(s.tables) > 0 {
		snap.Tables = make(map[string]TableStats, len(s.tables))
		for name, t := range s.tables {
			snap.Tables[name] = *t
		}
	}
	return snap
}

// Reset clears every counter.
func (s *QueryStats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries, s.execs, s.slow, s.errors, s.duration = 0, 0, 0, 0, 0
	s.kinds, s.tables = nil, nil
}

// StatsSnapshot is a point-in-time copy of QueryStats.
type StatsSnapshot struct {
	TotalQueries  int64                 `json:"queries"`
	TotalExecs    int64                 `json:"execs"`
	TotalDuration time.Duration         `json:"duration"`
	SlowQueries   int64                 `json:"slow"`
	Errors        int64                 `json:"errors"`
	Kinds         map[string]int64      `json:"kinds,omitempty"`
	Tables        map[string]TableStats `json:"tables,omitempty"`
}

// AvgQueryDuration returns the mean duration of a statement.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	n := s.TotalQueries + s.TotalExecs
	if n == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(n)
}

// String renders the totals followed by the per-kind counters.
func (s StatsSnapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(), s.SlowQueries, s.Errors)
	kinds := make([]string, 0, len(s.Kinds))
	for k := range s.Kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(&b, " %s=%d", k, s.Kinds[k])
	}
	return b.String()
}

// stmtInfo is the kind and target table of a SQL statement.
type stmtInfo struct {
	kind  string
	table string
}

// classify reads the kind and table of the statements this package builds.
// Statements of another shape are counted as KindOther without a table.
func classify(query string) stmtInfo {
	words := strings.Fields(query)
	if len(words) == 0 {
		return stmtInfo{kind: KindOther}
	}
	after := func(keyword string) string {
		for i, w := range words[:len(words)-1] {
			if strings.EqualFold(w, keyword) {
				return unquote(words[i+1])
			}
		}
		return ""
	}
	switch strings.ToUpper(words[0]) {
	case "CREATE":
		if t := after("EXISTS"); t != "" {
			return stmtInfo{kind: KindCreate, table: t}
		}
		return stmtInfo{kind: KindCreate, table: after("TABLE")}
	case "IF":
		if t := after("TABLE"); t != "" {
			return stmtInfo{kind: KindCreate, table: t}
		}
		return stmtInfo{kind: KindOther}
	case "SELECT":
		return stmtInfo{kind: KindSelect, table: after("FROM")}
	case "INSERT", "MERGE":
		return stmtInfo{kind: KindInsert, table: after("INTO")}
	case "UPDATE":
		return stmtInfo{kind: KindUpdate, table: after("UPDATE")}
	case "DELETE":
		return stmtInfo{kind: KindDelete, table: after("FROM")}
	default:
		return stmtInfo{kind: KindOther}
	}
}

func unquote(word string) string {
	if i := strings.IndexByte(word, '('); i >= 0 {
		word = word[:i]
	}
	return strings.Trim(word, "\"`[],;")
}

// SlowQueryHook is called for every statement slower than the threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsDriver wraps a Driver and records every statement in a QueryStats.
type StatsDriver struct {
	dialect.Driver
	stats     *QueryStats
	threshold atomic.Int64
	hook      SlowQueryHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.threshold.Store(int64(d))
	}
}

// WithSlowQueryHook sets the function called for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.hook = hook
	}
}

// WithSlowQueryLog logs slow statements as warnings to l, or to the default
// logger if l is nil.
func WithSlowQueryLog(l *slog.Logger) StatsOption {
	if l == nil {
		l = slog.Default()
	}
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, duration time.Duration) {
		st := classify(query)
		l.WarnContext(ctx, "slow query detected",
			"kind", st.kind, "table", st.table, "duration", duration, "query", query, "args", args)
	})
}

// NewStatsDriver wraps drv with statistics collection.
//
//	drv, _ := sql.Open("pgx", dsn)
//	stats := sql.NewStatsDriver(drv,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLog(logger),
//	)
//	repo := sql.NewRepository(stats)
//	fmt.Println(stats.QueryStats().Stats())
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv, stats: &QueryStats{}}
	s.threshold.Store(int64(DefaultSlowThreshold))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the counters of the driver.
func (d *StatsDriver) QueryStats() *QueryStats {
	return d.stats
}

// SlowThreshold returns the slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	return time.Duration(d.threshold.Load())
}

// SetSlowThreshold changes the slow statement threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.threshold.Store(int64(threshold))
}

// Query implements the dialect.ExecQuerier interface.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.observe(ctx, query, args, true, start, err)
	return err
}

// Exec implements the dialect.ExecQuerier interface.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.observe(ctx, query, args, false, start, err)
	return err
}

func (d *StatsDriver) observe(ctx context.Context, query string, args any, isQuery bool, start time.Time, err error) {
	elapsed := time.Since(start)
	slow := elapsed > d.SlowThreshold()
	d.stats.add(classify(query), isQuery, elapsed, slow, err)
	if slow && d.hook != nil {
		list, _ := args.([]any)
		d.hook(ctx, query, list, elapsed)
	}
}

// Tx starts a transaction whose statements are recorded too.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &statsTx{Tx: tx, drv: d}, nil
}

type statsTx struct {
	dialect.Tx
	drv *StatsDriver
}

func (tx *statsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.drv.observe(ctx, query, args, true, start, err)
	return err
}

func (tx *statsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.drv.observe(ctx, query, args, false, start, err)
	return err
}

// DebugDriver logs every statement at debug level, tagged with its kind and
// table.
type DebugDriver struct {
	dialect.Driver
	log *slog.Logger
}

// NewDebugDriver wraps drv with debug logging to l, or to the default
// logger if l is nil.
func NewDebugDriver(drv dialect.Driver, l *slog.Logger) *DebugDriver {
	if l == nil {
		l = slog.Default()
	}
	return &DebugDriver{Driver: drv, log: l}
}

// Query implements the dialect.ExecQuerier interface.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	logStatement(ctx, d.log, "query", query, args)
	return d.Driver.Query(ctx, query, args, v)
}

// Exec implements the dialect.ExecQuerier interface.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	logStatement(ctx, d.log, "exec", query, args)
	return d.Driver.Exec(ctx, query, args, v)
}

// Tx starts a transaction whose statements are logged too.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	d.log.DebugContext(ctx, "begin transaction")
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &debugTx{Tx: tx, log: d.log}, nil
}

func logStatement(ctx context.Context, l *slog.Logger, msg, query string, args any) {
	st := classify(query)
	l.DebugContext(ctx, msg, "kind", st.kind, "table", st.table, "sql", query, "args", args)
}

type debugTx struct {
	dialect.Tx
	log *slog.Logger
}

func (tx *debugTx) Query(ctx context.Context, query string, args, v any) error {
	logStatement(ctx, tx.log, "tx query", query, args)
	return tx.Tx.Query(ctx, query, args, v)
}

func (tx *debugTx) Exec(ctx context.Context, query string, args, v any) error {
	logStatement(ctx, tx.log, "tx exec", query, args)
	return tx.Tx.Exec(ctx, query, args, v)
}

func (tx *debugTx) Commit() error {
	tx.log.Debug("commit transaction")
	return tx.Tx.Commit()
}

func (tx *debugTx) Rollback() error {
	tx.log.Debug("rollback transaction")
	return tx.Tx.Rollback()
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*statsTx)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*debugTx)(nil)
)
