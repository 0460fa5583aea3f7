package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRoster(t *testing.T) {
	assert.Empty(t, FormatRoster(nil))
	assert.Equal(t, "alice(Online)", FormatRoster([]Entry{{Name: "alice", Status: StatusOnline}}))
	assert.Equal(t, "alice(Online),bob(Away),carol(Offline)", FormatRoster([]Entry{
		{Name: "alice", Status: StatusOnline},
		{Name: "bob", Status: StatusAway},
		{Name: "carol", Status: StatusOffline},
	}))
}

func TestParseRoster(t *testing.T) {
	entries, err := ParseRoster("alice(Online),bob(Busy)")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Name: "alice", Status: StatusOnline}, {Name: "bob", Status: StatusBusy}}, entries)

	entries, err = ParseRoster("")
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestParseRoster_Malformed(t *testing.T) {
	for _, value := range []string{
		"alice",
		"(Online)",
		"alice(Online",
		"alice(Online),",
		",alice(Online)",
		"alice(On(line))",
		"alice(Sleeping)",
		"alice(Online)x",
	} {
		t.Run(value, func(t *testing.T) {
			_, err := ParseRoster(value)
			assert.Error(t, err)
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, st := range Statuses {
		got, err := ParseStatus(string(st))
		require.NoError(t, err)
		assert.Equal(t, st, got)
		assert.True(t, st.Valid())
	}

	_, err := ParseStatus("online")
	assert.Error(t, err)
	assert.False(t, Status("").Valid())
}

func TestEntryString(t *testing.T) {
	assert.Equal(t, "bob(Away)", Entry{Name: "bob", Status: StatusAway}.String())
}
