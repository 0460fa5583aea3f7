package session

import (
	"crypto/rand"
	"fmt"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gochat-presence/internal/errutil"
	"github.com/Tyrowin/gochat-presence/internal/protocol"
)

func newConnID() ulid.ULID {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
}

func TestRegistry_JoinInOrder(t *testing.T) {
	r := NewRegistry()

	var want []protocol.Entry
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("user%d", i)
		s, err := r.Join(newConnID(), name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name)
		assert.Equal(t, protocol.StatusOnline, s.Status)
		want = append(want, protocol.Entry{Name: name, Status: protocol.StatusOnline})
	}

	assert.Equal(t, want, r.Snapshot())
	assert.Equal(t, 10, r.Len())
}

func TestRegistry_EmptySnapshot(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Snapshot())
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_DuplicateNameRejected(t *testing.T) {
	r := NewRegistry()
	alice := newConnID()
	impostor := newConnID()

	_, err := r.Join(alice, "alice")
	require.NoError(t, err)

	_, err = r.Join(impostor, "alice")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeNameTaken)
	errutil.AssertErrorContext(t, err, "name", "alice")

	_, ok := r.Lookup(impostor)
	assert.False(t, ok, "rejected connection must not get a session")
	assert.Equal(t, []protocol.Entry{{Name: "alice", Status: protocol.StatusOnline}}, r.Snapshot())
}

func TestRegistry_NameReusableAfterLeave(t *testing.T) {
	r := NewRegistry()
	first := newConnID()
	second := newConnID()

	_, err := r.Join(first, "alice")
	require.NoError(t, err)
	r.Leave(first)

	_, err = r.Join(second, "alice")
	require.NoError(t, err)

	s, ok := r.ByName("alice")
	require.True(t, ok)
	assert.Equal(t, second, s.ConnID)
}

func TestRegistry_InvalidNameRejected(t *testing.T) {
	r := NewRegistry()

	_, err := r.Join(newConnID(), "bad:name")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, protocol.CodeNameInvalid)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_RejoinReplacesInPlace(t *testing.T) {
	r := NewRegistry()
	alice := newConnID()
	bob := newConnID()

	_, err := r.Join(alice, "alice")
	require.NoError(t, err)
	_, err = r.Join(bob, "bob")
	require.NoError(t, err)
	require.True(t, r.SetStatus("alice", protocol.StatusBusy))

	s, err := r.Join(alice, "alicia")
	require.NoError(t, err)
	assert.Equal(t, "alicia", s.Name)
	assert.Equal(t, protocol.StatusOnline, s.Status)

	assert.Equal(t, []protocol.Entry{
		{Name: "alicia", Status: protocol.StatusOnline},
		{Name: "bob", Status: protocol.StatusOnline},
	}, r.Snapshot())

	_, ok := r.ByName("alice")
	assert.False(t, ok, "old name must be released")
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_RejoinSameName(t *testing.T) {
	r := NewRegistry()
	alice := newConnID()

	_, err := r.Join(alice, "alice")
	require.NoError(t, err)
	r.SetStatus("alice", protocol.StatusAway)

	s, err := r.Join(alice, "alice")
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusOnline, s.Status)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_LeaveNeverJoined(t *testing.T) {
	r := NewRegistry()
	_, err := r.Join(newConnID(), "alice")
	require.NoError(t, err)
	before := r.Snapshot()

	_, ok := r.Leave(newConnID())
	assert.False(t, ok)
	assert.Equal(t, before, r.Snapshot())
}

func TestRegistry_LeaveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	alice := newConnID()
	bob := newConnID()
	_, err := r.Join(alice, "alice")
	require.NoError(t, err)
	_, err = r.Join(bob, "bob")
	require.NoError(t, err)

	s, ok := r.Leave(alice)
	require.True(t, ok)
	assert.Equal(t, "alice", s.Name)
	afterFirst := r.Snapshot()

	_, ok = r.Leave(alice)
	assert.False(t, ok)
	assert.Equal(t, afterFirst, r.Snapshot())
	assert.Equal(t, []protocol.Entry{{Name: "bob", Status: protocol.StatusOnline}}, afterFirst)
}

func TestRegistry_SetStatus(t *testing.T) {
	r := NewRegistry()
	_, err := r.Join(newConnID(), "alice")
	require.NoError(t, err)

	assert.True(t, r.SetStatus("alice", protocol.StatusAway))
	assert.False(t, r.SetStatus("nobody", protocol.StatusBusy))

	assert.Equal(t, []protocol.Entry{{Name: "alice", Status: protocol.StatusAway}}, r.Snapshot())
	_, ok := r.ByName("nobody")
	assert.False(t, ok, "unknown status target must not create a session")
}

func TestRegistry_LookupReturnsCopy(t *testing.T) {
	r := NewRegistry()
	alice := newConnID()
	_, err := r.Join(alice, "alice")
	require.NoError(t, err)

	s, ok := r.Lookup(alice)
	require.True(t, ok)
	s.Status = protocol.StatusOffline

	again, _ := r.Lookup(alice)
	assert.Equal(t, protocol.StatusOnline, again.Status)
}

func TestRegistry_JoinedAt(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewRegistry()
	r.now = func() time.Time { return fixed }

	s, err := r.Join(newConnID(), "alice")
	require.NoError(t, err)
	assert.Equal(t, fixed, s.JoinedAt)
}
