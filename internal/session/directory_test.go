package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velha/internal/game"
	"velha/internal/store"
)

type fakeArchiver struct {
	records []*store.Record
}

func (f *fakeArchiver) Archive(rec *store.Record) {
	f.records = append(f.records, rec)
}

func TestDirectoryCreateAndLookup(t *testing.T) {
	d := NewDirectory(nil)

	s, err := d.Create("alice", "bob")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.NotEmpty(t, s.ID)

	got, err := d.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	assert.Same(t, s, d.ActiveSessionOf("alice"))
	assert.Same(t, s, d.ActiveSessionOf("bob"))
	assert.Equal(t, 1, d.Count())
}

func TestDirectoryGetUnknown(t *testing.T) {
	d := NewDirectory(nil)

	_, err := d.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDirectoryAtMostOneActiveSessionPerUser(t *testing.T) {
	d := NewDirectory(nil)

	_, err := d.Create("alice", "bob")
	require.NoError(t, err)

	_, err = d.Create("alice", "carol")
	assert.ErrorIs(t, err, ErrAlreadyInSession)

	_, err = d.Create("carol", "bob")
	assert.ErrorIs(t, err, ErrAlreadyInSession)

	assert.Equal(t, 1, d.Count())
	assert.Nil(t, d.ActiveSessionOf("carol"))
}

func TestDirectoryTerminateFreesUsersAndArchives(t *testing.T) {
	arch := &fakeArchiver{}
	d := NewDirectory(arch)

	s, err := d.Create("alice", "bob")
	require.NoError(t, err)
	require.NoError(t, s.Forfeit("bob"))

	d.Terminate(s.ID)

	assert.Nil(t, d.ActiveSessionOf("alice"))
	assert.Nil(t, d.ActiveSessionOf("bob"))
	_, err = d.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.Len(t, arch.records, 1)
	rec := arch.records[0]
	assert.Equal(t, s.ID, rec.SessionID)
	assert.Equal(t, game.ResultForfeited, rec.Status.Result)

	// Encerrada, os dois podem abrir partidas novas.
	_, err = d.Create("alice", "carol")
	require.NoError(t, err)
}

func TestDirectoryTerminateUnknownIsNoop(t *testing.T) {
	arch := &fakeArchiver{}
	d := NewDirectory(arch)

	d.Terminate("nope")
	assert.Empty(t, arch.records)
}

func TestDirectoryStale(t *testing.T) {
	d := NewDirectory(nil)

	old, err := d.Create("alice", "bob")
	require.NoError(t, err)
	fresh, err := d.Create("carol", "dave")
	require.NoError(t, err)

	old.UpdatedAt = time.Now().Add(-time.Hour)

	stale := d.Stale(30 * time.Minute)
	require.Len(t, stale, 1)
	assert.Same(t, old, stale[0])
	assert.NotContains(t, stale, fresh)
}
