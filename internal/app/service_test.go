package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/tend/internal/clock"
	"github.com/sandeepkv93/tend/internal/contacts"
	"github.com/sandeepkv93/tend/internal/model"
	"github.com/sandeepkv93/tend/internal/planner"
	"github.com/sandeepkv93/tend/internal/storage"
)

var testNow = time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)

type recordingPlanner struct {
	mu       sync.Mutex
	requests []planner.Request
}

func (r *recordingPlanner) Replan(_ context.Context, req planner.Request) error {
	return r.Enqueue(req)
}

func (r *recordingPlanner) Enqueue(req planner.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return nil
}

func (r *recordingPlanner) reasons() []planner.Reason {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]planner.Reason, 0, len(r.requests))
	for _, req := range r.requests {
		out = append(out, req.Reason)
	}
	return out
}

type staticSource struct {
	list []contacts.DeviceContact
}

func (s staticSource) ListContacts(context.Context, string) ([]contacts.DeviceContact, error) {
	return s.list, nil
}

func (s staticSource) GetContactEvents(context.Context, string) (contacts.DeviceEvents, error) {
	return contacts.DeviceEvents{}, nil
}

func newTestService(t *testing.T, source contacts.Source) (*Service, *recordingPlanner, *storage.SQLiteRepository) {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "app-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.MigrateUp(context.Background(), db, nil))
	repo, err := storage.NewSQLiteRepository(db, storage.WithClock(clock.Fixed{At: testNow}))
	require.NoError(t, err)

	rec := &recordingPlanner{}
	svc := NewService(Options{
		Store:   repo,
		Planner: rec,
		Source:  source,
		Clock:   clock.Fixed{At: testNow},
	})
	return svc, rec, repo
}

func TestMutationsTriggerReplans(t *testing.T) {
	ctx := context.Background()
	svc, rec, _ := newTestService(t, nil)

	require.NoError(t, svc.AddContact(ctx, model.Contact{SystemID: "a", FullName: "Ada", Circle: model.CircleInner}))
	_, err := svc.LogInteraction(ctx, model.LogInput{ContactSystemID: "a", Summary: "coffee"})
	require.NoError(t, err)
	fuzzy := false
	_, err = svc.UpdateConfig(ctx, model.AppConfigPatch{FuzzyRemindersEnabled: &fuzzy})
	require.NoError(t, err)
	_, err = svc.UpdateContact(ctx, "a", model.ContactPatch{})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteContact(ctx, "a"))

	assert.Equal(t, []planner.Reason{
		planner.ReasonDataChange,
		planner.ReasonDataChange,
		planner.ReasonConfigChange,
		planner.ReasonDataChange,
	}, rec.reasons())
}

func TestFailedMutationDoesNotReplan(t *testing.T) {
	svc, rec, _ := newTestService(t, nil)
	_, err := svc.LogInteraction(context.Background(), model.LogInput{ContactSystemID: "ghost", Summary: "hi"})
	require.ErrorIs(t, err, storage.ErrNotFound)

	bad := 0
	_, err = svc.UpdateConfig(context.Background(), model.AppConfigPatch{DefaultCadenceInnerDays: &bad})
	require.ErrorIs(t, err, model.ErrInvalidCadence)
	assert.Empty(t, rec.reasons())
}

func TestImportForcesSync(t *testing.T) {
	source := staticSource{list: []contacts.DeviceContact{{ID: "d1", Name: "Dee"}}}
	svc, rec, repo := newTestService(t, source)

	n, err := svc.Import(context.Background(), []string{"d1"}, model.CircleMid)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec.mu.Lock()
	require.Len(t, rec.requests, 1)
	assert.Equal(t, planner.Request{Reason: planner.ReasonDataChange, ForceSync: true}, rec.requests[0])
	rec.mu.Unlock()

	c, err := repo.GetContact(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, model.CircleMid, c.Circle)

	candidates, err := svc.ImportCandidates(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].AlreadyImported)
}

func TestImportWithoutSourceIsPermissionDenied(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	_, err := svc.Import(context.Background(), []string{"x"}, model.CircleInner)
	assert.ErrorIs(t, err, contacts.ErrPermissionDenied)

	candidates, err := svc.ImportCandidates(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestBuckets(t *testing.T) {
	ctx := context.Background()
	svc, _, repo := newTestService(t, nil)
	fuzzy := false
	_, err := repo.UpdateConfig(ctx, model.AppConfigPatch{FuzzyRemindersEnabled: &fuzzy})
	require.NoError(t, err)

	for _, c := range []model.Contact{
		{SystemID: "late", FullName: "Late", Circle: model.CircleInner},
		{SystemID: "soon", FullName: "Soon", Circle: model.CircleInner},
		{SystemID: "week", FullName: "Week", Circle: model.CircleInner},
		{SystemID: "far", FullName: "Far", Circle: model.CircleOuter},
	} {
		require.NoError(t, repo.UpsertContact(ctx, c))
	}
	logAt := func(id string, daysAgo float64) {
		at := testNow.Add(-time.Duration(daysAgo * float64(24*time.Hour)))
		_, err := repo.InsertContactLog(ctx, model.LogInput{ContactSystemID: id, Summary: "call", CreatedAt: &at})
		require.NoError(t, err)
	}
	logAt("late", 20)
	logAt("soon", 13.5)
	logAt("week", 10)
	logAt("far", 1)

	b, err := svc.Buckets(ctx)
	require.NoError(t, err)
	require.Len(t, b.NeedsWater, 1)
	assert.Equal(t, "late", b.NeedsWater[0].Contact.SystemID)
	require.Len(t, b.Today, 1)
	assert.Equal(t, "soon", b.Today[0].Contact.SystemID)
	require.Len(t, b.ThisWeek, 1)
	assert.Equal(t, "week", b.ThisWeek[0].Contact.SystemID)
	require.Len(t, b.Later, 1)
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	svc, _, repo := newTestService(t, nil)
	require.NoError(t, repo.UpsertContact(ctx, model.Contact{SystemID: "a", FullName: "Ada", Circle: model.CircleInner}))

	empty, err := svc.Profile(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Never", empty.LastSpokeLabel)
	assert.Equal(t, "Any time", empty.DueLabel)
	assert.Equal(t, 0, empty.Streak)
	assert.Equal(t, 14, empty.CadenceDays)

	for _, daysAgo := range []int{40, 30, 3} {
		at := testNow.AddDate(0, 0, -daysAgo)
		_, err := repo.InsertContactLog(ctx, model.LogInput{ContactSystemID: "a", Summary: "call", CreatedAt: &at})
		require.NoError(t, err)
	}

	p, err := svc.Profile(ctx, "a")
	require.NoError(t, err)
	require.Len(t, p.Logs, 3)
	assert.Equal(t, "3 days ago", p.LastSpokeLabel)
	assert.Equal(t, "in 11 days", p.DueLabel)
	// 40 -> 30 is on time, 30 -> 3 is overdue even with fuzzy grace
	assert.Equal(t, 0, p.Streak)
	assert.True(t, p.Logs[0].WasOverdue)

	_, err = svc.Profile(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
