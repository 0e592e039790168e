package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderoom/coderoom/internal/core"
	"github.com/coderoom/coderoom/internal/domain"
)

func memberIDs(members []core.MemberDTO) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, string(m.SID))
	}
	return out
}

func TestRegistry_Join(t *testing.T) {
	tests := []struct {
		name        string
		displayName string
		wantErr     error
		wantListed  bool
	}{
		{
			name:        "valid name",
			displayName: "alice",
			wantListed:  true,
		},
		{
			name:        "name is trimmed",
			displayName: "  alice  ",
			wantListed:  true,
		},
		{
			name:        "empty name rejected",
			displayName: "",
			wantErr:     domain.ErrInvalidIdentity,
		},
		{
			name:        "whitespace-only name rejected",
			displayName: "   \t\n",
			wantErr:     domain.ErrInvalidIdentity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			err := r.Join("c1", "r1", tt.displayName)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, r.Members("r1"))
				_, ok := r.Name("c1")
				assert.False(t, ok, "rejected join must not record a name")
				return
			}

			require.NoError(t, err)
			members := r.Members("r1")
			require.Len(t, members, 1)
			assert.Equal(t, "alice", members[0].Username)
		})
	}
}

func TestRegistry_JoinIdempotent(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Join("c1", "r1", "alice"))
	require.NoError(t, r.Join("c1", "r1", "alice"))

	assert.Len(t, r.Members("r1"), 1)
}

func TestRegistry_Leave(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Join("c1", "r1", "alice"))
	require.NoError(t, r.Join("c2", "r1", "bob"))

	r.Leave("c1", "r1")
	assert.ElementsMatch(t, []string{"c2"}, memberIDs(r.Members("r1")))

	// Leaving again, or leaving an unknown room, is a no-op.
	r.Leave("c1", "r1")
	r.Leave("c1", "nope")
	assert.Len(t, r.Members("r1"), 1)
}

func TestRegistry_MembersUnknownRoom(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Members("ghost"))
}

func TestRegistry_MembersExcludesNameless(t *testing.T) {
	r := NewRegistry()
	r.Bind("c1", nil)
	require.NoError(t, r.Join("c2", "r1", "bob"))

	// c1 is bound but never joined with a name; it must not list.
	assert.ElementsMatch(t, []string{"c2"}, memberIDs(r.Members("r1")))
}

func TestRegistry_RemoveConnection(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Join("c1", "r1", "alice"))
	require.NoError(t, r.Join("c1", "r2", "alice"))
	require.NoError(t, r.Join("c2", "r1", "bob"))

	r.RemoveConnection("c1")

	assert.ElementsMatch(t, []string{"c2"}, memberIDs(r.Members("r1")))
	assert.Empty(t, r.Members("r2"))
	_, ok := r.Name("c1")
	assert.False(t, ok)
	assert.Empty(t, r.RoomsOf("c1"))
}

func TestRegistry_RoomsOf(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Join("c1", "r1", "alice"))
	require.NoError(t, r.Join("c1", "r2", "alice"))

	rooms := r.RoomsOf("c1")
	assert.ElementsMatch(t, []domain.RoomID{"r1", "r2"}, rooms)
}

func TestRegistry_EmptyRoomIsGarbage(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Join("c1", "r1", "alice"))
	r.Leave("c1", "r1")

	rooms, _ := r.Stats()
	assert.Zero(t, rooms)
}
