package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/ginjaninja78/budget-report/internal/session"
)

// Workspace is one browser session: a Report and a Merge controller plus
// the lock that serializes requests against them.
type Workspace struct {
	ID      string
	Created time.Time

	mu     sync.Mutex
	Report *session.Report
	Merge  *session.Merge
}

// Store keeps a bounded number of workspaces. When it is full the least
// recently used workspace is dropped.
type Store struct {
	cache      *lru.Cache[string, *Workspace]
	reportOpts session.ReportOptions
	mergeOpts  session.MergeOptions
	logger     *zap.Logger
}

// NewStore creates a Store holding at most size workspaces.
func NewStore(size int, reportOpts session.ReportOptions, mergeOpts session.MergeOptions, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{reportOpts: reportOpts, mergeOpts: mergeOpts, logger: logger}

	cache, err := lru.NewWithEvict[string, *Workspace](size, func(id string, _ *Workspace) {
		logger.Info("session evicted", zap.String("session", id))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}
	s.cache = cache

	// Fail at startup rather than on the first request.
	if _, err := session.NewReport(reportOpts); err != nil {
		return nil, fmt.Errorf("invalid report options: %w", err)
	}

	return s, nil
}

// Create starts a new workspace.
func (s *Store) Create() (*Workspace, error) {
	id := uuid.NewString()
	logger := s.logger.With(zap.String("session", id))

	reportOpts := s.reportOpts
	reportOpts.Logger = logger
	report, err := session.NewReport(reportOpts)
	if err != nil {
		return nil, err
	}

	mergeOpts := s.mergeOpts
	mergeOpts.Logger = logger

	ws := &Workspace{
		ID:      id,
		Created: time.Now(),
		Report:  report,
		Merge:   session.NewMerge(mergeOpts),
	}
	s.cache.Add(ws.ID, ws)
	logger.Info("session created")

	return ws, nil
}

// Get returns the workspace with the given id and marks it recently used.
func (s *Store) Get(id string) (*Workspace, bool) {
	return s.cache.Get(id)
}

// Len returns the number of live workspaces.
func (s *Store) Len() int {
	return s.cache.Len()
}
