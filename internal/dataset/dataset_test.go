package dataset

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp-labs/dataops/internal/blob"
	"github.com/edp-labs/dataops/internal/notify"
	"github.com/edp-labs/dataops/internal/state"
	"github.com/edp-labs/dataops/internal/table"
	"github.com/edp-labs/dataops/internal/testutil"
)

type fakePublisher struct {
	calls []notify.ChangeSummary
	err   error
}

func (f *fakePublisher) PublishChange(_ context.Context, _ string, s notify.ChangeSummary) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, s)
	return "msg-1", nil
}

func newTestService(t *testing.T, pub Publisher, audit state.Store) (*Service, blob.Store) {
	t.Helper()
	store := blob.NewMemory()
	svc := New(store, audit, pub, []Definition{
		{Name: "customers", Key: "datasets/customers.csv", KeyColumn: "row_id", TopicARN: "arn:aws:sns:eu-west-1:123:changes"},
	}, testutil.NewTestLogger(t))
	return svc, store
}

func seed(t *testing.T, store blob.Store, key, csv string) {
	t.Helper()
	_, err := store.Put(context.Background(), key, []byte(csv), blob.PutOptions{})
	require.NoError(t, err)
}

func TestLoadUnknownDataset(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	_, err := svc.Load(context.Background(), "nope")
	require.ErrorIs(t, err, ErrUnknownDataset)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	svc, store := newTestService(t, nil, nil)
	seed(t, store, "datasets/customers.csv", "name,city\nada,london\ngrace,nyc\n")

	snap, err := svc.Load(context.Background(), "customers")
	require.NoError(t, err)
	require.Equal(t, 2, snap.Table.NumRows())

	edited := snap.Table.Clone()
	edited.Rows[0][1] = "paris"

	res, err := svc.Save(context.Background(), snap, edited, "ops")
	require.NoError(t, err)
	assert.NotEmpty(t, res.ETag)

	reloaded, err := svc.Load(context.Background(), "customers")
	require.NoError(t, err)

	// Equal modulo system columns: the business cells round-trip.
	business := reloaded.Table.StripSystem()
	assert.True(t, business.Equal(edited), "business columns should round-trip")

	// System columns are stamped uniformly.
	for _, col := range []string{table.ColRowID, table.ColLastModified, table.ColIsActive, table.ColModifiedBy} {
		assert.True(t, reloaded.Table.HasColumn(col), col)
	}
	mi := reloaded.Table.ColumnIndex(table.ColModifiedBy)
	for _, row := range reloaded.Table.Rows {
		assert.Equal(t, "ops", row[mi])
	}
}

func TestSaveConflict(t *testing.T) {
	svc, store := newTestService(t, nil, nil)
	seed(t, store, "datasets/customers.csv", "name\nada\n")

	snap, err := svc.Load(context.Background(), "customers")
	require.NoError(t, err)

	// Another writer commits in between.
	_, err = store.Put(context.Background(), "datasets/customers.csv", []byte("name\ngrace\n"), blob.PutOptions{})
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), snap, snap.Table.Clone(), "ops")
	require.ErrorIs(t, err, ErrConflict)
}

func TestSaveCountsAndNotifies(t *testing.T) {
	pub := &fakePublisher{}
	svc, store := newTestService(t, pub, nil)
	seed(t, store, "datasets/customers.csv", "row_id,name\nr1,ada\nr2,grace\n")

	snap, err := svc.Load(context.Background(), "customers")
	require.NoError(t, err)

	edited := table.New("row_id", "name")
	require.NoError(t, edited.Append([]string{"r1", "ada lovelace"})) // modified
	require.NoError(t, edited.Append([]string{"", "alan"}))           // added
	// r2 dropped → deleted

	res, err := svc.Save(context.Background(), snap, edited, "ops")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, 1, res.Modified)
	assert.True(t, res.Notified)

	require.Len(t, pub.calls, 1)
	assert.Equal(t, "customers", pub.calls[0].Dataset)
	assert.Equal(t, 1, pub.calls[0].Added)
}

func TestSaveSurvivesNotifyFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("sns down")}
	svc, store := newTestService(t, pub, nil)
	seed(t, store, "datasets/customers.csv", "name\nada\n")

	snap, err := svc.Load(context.Background(), "customers")
	require.NoError(t, err)

	res, err := svc.Save(context.Background(), snap, snap.Table.Clone(), "ops")
	require.NoError(t, err)
	assert.False(t, res.Notified)
	assert.Contains(t, res.NotifyError, "sns down")
}

func TestSaveWithoutPublisherIsNotAFailure(t *testing.T) {
	svc, store := newTestService(t, nil, nil)
	seed(t, store, "datasets/customers.csv", "name\nada\n")

	snap, err := svc.Load(context.Background(), "customers")
	require.NoError(t, err)

	res, err := svc.Save(context.Background(), snap, snap.Table.Clone(), "ops")
	require.NoError(t, err)
	assert.False(t, res.Notified)
	assert.Empty(t, res.NotifyError)
}

func TestSaveRecordsAudit(t *testing.T) {
	audit, err := state.Open(":memory:")
	require.NoError(t, err)
	defer audit.Close()

	svc, store := newTestService(t, nil, audit)
	seed(t, store, "datasets/customers.csv", "row_id,name\nr1,ada\n")

	snap, err := svc.Load(context.Background(), "customers")
	require.NoError(t, err)

	edited := snap.Table.Clone()
	edited.Rows[0][1] = "ada lovelace"
	_, err = svc.Save(context.Background(), snap, edited, "ops")
	require.NoError(t, err)

	events, err := audit.ListSaves("customers", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ops", events[0].User)
	assert.Equal(t, 1, events[0].Modified)
}

func TestReviewIgnoresStampColumns(t *testing.T) {
	svc, store := newTestService(t, nil, nil)
	seed(t, store, "datasets/customers.csv",
		"row_id,name,last_modified,is_active,modified_by\nr1,ada,2026-01-01T00:00:00Z,true,ops\n")

	snap, err := svc.Load(context.Background(), "customers")
	require.NoError(t, err)

	changes, err := svc.Review(snap, snap.Table.Clone())
	require.NoError(t, err)
	assert.True(t, changes.Empty())
}
