// Package dataset implements the load→edit→review→save pipeline for
// curated CSV datasets held in the object store.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/edp-labs/dataops/internal/blob"
	"github.com/edp-labs/dataops/internal/diff"
	"github.com/edp-labs/dataops/internal/notify"
	"github.com/edp-labs/dataops/internal/state"
	"github.com/edp-labs/dataops/internal/table"
)

// ErrConflict reports that the object changed underneath an edit
// session since its snapshot was loaded.
var ErrConflict = errors.New("dataset changed since snapshot was loaded")

// ErrUnknownDataset reports a name with no configured definition.
var ErrUnknownDataset = errors.New("unknown dataset")

// Definition describes one managed dataset.
type Definition struct {
	Name      string
	Key       string
	KeyColumn string
	TopicARN  string
}

// Snapshot is an immutable view of a dataset object at load time. The
// ETag pins the exact object version for conflict detection on save.
type Snapshot struct {
	Name     string
	Table    *table.Table
	ETag     string
	LoadedAt time.Time
}

// SaveResult reports a committed save. Notified is true when a change
// notification went out; NotifyError carries the publish failure, and
// both stay zero when notifications are not configured for the dataset.
type SaveResult struct {
	Key         string
	ETag        string
	Added       int
	Deleted     int
	Modified    int
	Notified    bool
	NotifyError string
}

// Publisher is the notification hook used after a save.
type Publisher interface {
	PublishChange(ctx context.Context, topicARN string, s notify.ChangeSummary) (string, error)
}

// Service coordinates dataset reads and writes. Definitions may be
// swapped at runtime via SetDefinitions (config reload).
type Service struct {
	store     blob.Store
	audit     state.Store
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time

	mu   sync.RWMutex
	defs map[string]Definition
}

// New creates a Service. audit and publisher may be nil, disabling the
// audit trail and notifications respectively.
func New(store blob.Store, audit state.Store, publisher Publisher, defs []Definition, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		store:     store,
		audit:     audit,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
	s.SetDefinitions(defs)
	return s
}

// SetDefinitions replaces the configured dataset set.
func (s *Service) SetDefinitions(defs []Definition) {
	m := make(map[string]Definition, len(defs))
	for _, d := range defs {
		m[d.Name] = d
	}
	s.mu.Lock()
	s.defs = m
	s.mu.Unlock()
}

// Definitions lists configured datasets sorted by name.
func (s *Service) Definitions() []Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Definition, 0, len(s.defs))
	for _, d := range s.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Definition looks up one dataset by name.
func (s *Service) Definition(name string) (Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownDataset, name)
	}
	return d, nil
}

// Load reads the dataset object and parses it into a snapshot.
func (s *Service) Load(ctx context.Context, name string) (*Snapshot, error) {
	def, err := s.Definition(name)
	if err != nil {
		return nil, err
	}
	data, info, err := s.store.Get(ctx, def.Key)
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", name, err)
	}
	tbl, err := table.ReadCSV(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", name, err)
	}
	s.logger.Info("dataset loaded", "dataset", name, "key", def.Key, "rows", tbl.NumRows(), "etag", info.ETag)
	return &Snapshot{Name: name, Table: tbl, ETag: info.ETag, LoadedAt: s.now().UTC()}, nil
}

// Review diffs an edited table against a snapshot. System columns are
// stripped on both sides so that stamping noise never shows up as a
// modification.
func (s *Service) Review(snap *Snapshot, edited *table.Table) (*diff.Changes, error) {
	def, err := s.Definition(snap.Name)
	if err != nil {
		return nil, err
	}
	key := def.KeyColumn
	if key == "" {
		key = table.ColRowID
	}
	return diff.Tables(stripStamps(snap.Table), stripStamps(edited), key), nil
}

// Save writes the edited table back to the object store. The write
// carries the snapshot's ETag as a precondition; a stale snapshot
// yields ErrConflict. On success the save is recorded in the audit log
// and a change notification is published; notification failure is
// logged and never fails the save.
func (s *Service) Save(ctx context.Context, snap *Snapshot, edited *table.Table, user string) (*SaveResult, error) {
	def, err := s.Definition(snap.Name)
	if err != nil {
		return nil, err
	}
	changes, err := s.Review(snap, edited)
	if err != nil {
		return nil, err
	}

	stamped := edited.EnsureRowIDs().Stamp(user, s.now())
	data, err := stamped.MarshalCSV()
	if err != nil {
		return nil, fmt.Errorf("encode dataset %s: %w", snap.Name, err)
	}

	info, err := s.store.Put(ctx, def.Key, []byte(data), blob.PutOptions{
		ContentType:  "text/csv",
		ExpectedETag: snap.ETag,
	})
	if errors.Is(err, blob.ErrPreconditionFailed) {
		return nil, fmt.Errorf("save dataset %s: %w", snap.Name, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("save dataset %s: %w", snap.Name, err)
	}

	res := &SaveResult{
		Key:      def.Key,
		ETag:     info.ETag,
		Added:    len(changes.Added),
		Deleted:  len(changes.Deleted),
		Modified: len(changes.Modified),
	}
	s.logger.Info("dataset saved", "dataset", snap.Name, "user", user,
		"added", res.Added, "deleted", res.Deleted, "modified", res.Modified, "etag", res.ETag)

	if s.audit != nil {
		err := s.audit.RecordSave(&state.SaveEvent{
			Dataset:   snap.Name,
			User:      user,
			Added:     res.Added,
			Deleted:   res.Deleted,
			Modified:  res.Modified,
			ObjectKey: def.Key,
			ETag:      info.ETag,
		})
		if err != nil {
			s.logger.Warn("audit record failed", "dataset", snap.Name, "error", err)
		}
	}

	if s.publisher != nil && def.TopicARN != "" {
		_, err := s.publisher.PublishChange(ctx, def.TopicARN, notify.ChangeSummary{
			Dataset:  snap.Name,
			User:     user,
			Added:    res.Added,
			Deleted:  res.Deleted,
			Modified: res.Modified,
			Key:      def.Key,
		})
		if err != nil {
			res.NotifyError = err.Error()
			s.logger.Warn("change notification failed", "dataset", snap.Name, "error", err)
		} else {
			res.Notified = true
		}
	}
	return res, nil
}

// stripStamps drops the volatile stamp columns but keeps row_id so
// keyed diffing still works.
func stripStamps(t *table.Table) *table.Table {
	return t.Drop(table.ColLastModified, table.ColIsActive, table.ColModifiedBy)
}
