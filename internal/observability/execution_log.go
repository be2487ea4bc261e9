package observability

import (
	"sync"
	"time"

	"github.com/veridata-labs/semquery/internal/errtax"
	"github.com/veridata-labs/semquery/internal/intent"
)

// ExecutionLogEntry records one attempt of the execution loop: the intent
// tried, the outcome, and (on failure) the taxonomy class and raw error
// text, so a later replay or audit can reconstruct why an attempt failed
// without re-running it (supplemented from the original engine's
// execution_log.rs, which the distilled spec folds into "observability"
// without this level of detail).
type ExecutionLogEntry struct {
	QueryID       string
	UserQuery     string
	Attempt       int
	Intent        intent.SemanticSQLIntent
	ErrorClass    errtax.Class
	ErrorMessage  string
	FinalSQL      string
	ExecutionTime time.Duration
	Success       bool
	Timestamp     time.Time
}

// NewExecutionLogEntry starts an entry for attempt 0 of queryID.
func NewExecutionLogEntry(queryID, userQuery string) ExecutionLogEntry {
	return ExecutionLogEntry{QueryID: queryID, UserQuery: userQuery, Timestamp: time.Now()}
}

// WithAttempt returns a copy with the attempt number set.
func (e ExecutionLogEntry) WithAttempt(n int) ExecutionLogEntry {
	e.Attempt = n
	return e
}

// WithIntent returns a copy carrying the attempted intent.
func (e ExecutionLogEntry) WithIntent(in intent.SemanticSQLIntent) ExecutionLogEntry {
	e.Intent = in
	return e
}

// WithError returns a copy marked failed with the given taxonomy class and
// message.
func (e ExecutionLogEntry) WithError(class errtax.Class, message string) ExecutionLogEntry {
	e.ErrorClass = class
	e.ErrorMessage = message
	e.Success = false
	return e
}

// WithSuccess returns a copy marked successful with the final SQL and
// elapsed execution time.
func (e ExecutionLogEntry) WithSuccess(sql string, elapsed time.Duration) ExecutionLogEntry {
	e.FinalSQL = sql
	e.ExecutionTime = elapsed
	e.Success = true
	return e
}

// ExecutionLogStore accumulates entries across attempts and queries.
type ExecutionLogStore struct {
	mu      sync.Mutex
	entries []ExecutionLogEntry
}

// NewExecutionLogStore returns an empty store.
func NewExecutionLogStore() *ExecutionLogStore {
	return &ExecutionLogStore{}
}

// Add appends an entry.
func (s *ExecutionLogStore) Add(e ExecutionLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// All returns every recorded entry, in insertion order.
func (s *ExecutionLogStore) All() []ExecutionLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ExecutionLogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// ByQuery returns every entry recorded for queryID, in insertion order.
func (s *ExecutionLogStore) ByQuery(queryID string) []ExecutionLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ExecutionLogEntry
	for _, e := range s.entries {
		if e.QueryID == queryID {
			out = append(out, e)
		}
	}
	return out
}
