package contacts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/tend/internal/model"
)

func TestImporterCandidatesFlagsImported(t *testing.T) {
	store := newStore(t, time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC))
	seedContact(t, store, "a", "Ada")

	src := &fakeSource{contacts: []DeviceContact{{ID: "a", Name: "Ada"}, {ID: "b", Name: "Bob"}}}
	im := &Importer{Source: src, Store: store}

	got, err := im.Candidates(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].AlreadyImported)
	assert.False(t, got[1].AlreadyImported)
}

func TestImporterCandidatesPermissionDenied(t *testing.T) {
	store := newStore(t, time.Now())
	im := &Importer{Source: &fakeSource{listErr: ErrPermissionDenied}, Store: store}

	got, err := im.Candidates(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestImporterImportKeepsExistingCircle(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC))
	require.NoError(t, store.UpsertContact(ctx, model.Contact{
		SystemID:           "a",
		FullName:           "Ada",
		Circle:             model.CircleInner,
		CustomReminderDays: intPtr(5),
	}))

	src := &fakeSource{contacts: []DeviceContact{
		{ID: "a", Name: "Ada Lovelace"},
		{ID: "b", Name: "Bob", NickName: "Bobby"},
	}}
	replans := 0
	im := &Importer{
		Source: src,
		Store:  store,
		AfterImport: func(context.Context) error {
			replans++
			return nil
		},
	}

	n, err := im.Import(ctx, []string{"a", "b", "ghost"}, model.CircleOuter)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, replans)

	a, err := store.GetContact(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", a.FullName)
	assert.Equal(t, model.CircleInner, a.Circle)
	require.NotNil(t, a.CustomReminderDays)
	assert.Equal(t, 5, *a.CustomReminderDays)

	b, err := store.GetContact(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, model.CircleOuter, b.Circle)
	assert.Equal(t, "Bobby", b.NickName)
}

func TestImporterRejectsInvalidCircle(t *testing.T) {
	im := &Importer{Source: &fakeSource{}, Store: newStore(t, time.Now())}
	_, err := im.Import(context.Background(), []string{"a"}, model.Circle("close"))
	assert.ErrorIs(t, err, model.ErrInvalidCircle)
}
