package identity

import (
	"testing"

	"github.com/matheus3301/wxread/internal/model"
	"github.com/stretchr/testify/require"
)

func TestHashStable(t *testing.T) {
	require.Equal(t, Hash("alice"), Hash("alice"))
	require.Equal(t, "6384e2b2184bcbf58eccf10ca7a6563c", Hash("alice"))
	require.True(t, IsHash(Hash("alice")))
	require.False(t, IsHash("6384E2B2184BCBF58ECCF10CA7A6563C"))
	require.False(t, IsHash("alice"))
}

func TestBuildKeys(t *testing.T) {
	alice := model.Person{UsrName: "alice", Alias: "al", ConRemark: "Al"}
	bob := model.Person{UsrName: "bob"}

	ix := Build([]model.Person{alice, bob})
	require.Len(t, ix, 6)

	for _, key := range []string{"alice", Hash("alice"), "al", Hash("al")} {
		got, ok := ix.Lookup(key)
		require.True(t, ok, key)
		require.Equal(t, alice, got, key)
	}
	got, ok := ix.Resolve(Hash("bob"))
	require.True(t, ok)
	require.Equal(t, bob, got)

	_, ok = ix.Lookup("")
	require.False(t, ok, "empty alias must not be indexed")
}

func TestBuildAliasCollisionLastWins(t *testing.T) {
	first := model.Person{UsrName: "alice", Alias: "shared"}
	second := model.Person{UsrName: "alice2", Alias: "shared"}

	ix := Build([]model.Person{first, second})
	require.Equal(t, second, ix["shared"])
	require.Equal(t, second, ix[Hash("shared")])
	require.Equal(t, first, ix["alice"])

	ix = Build([]model.Person{second, first})
	require.Equal(t, first, ix["shared"])
}

func TestBuildSameNameLastWins(t *testing.T) {
	legacy := model.Person{UsrName: "alice", Alias: "al"}
	modern := model.Person{UsrName: "alice", NickName: "Alice2"}

	ix := Build([]model.Person{legacy, modern})
	require.Equal(t, modern, ix["alice"])
	require.Equal(t, legacy, ix["al"], "alias key survives from the earlier entry")
}

func TestSessionHash(t *testing.T) {
	ix := Build([]model.Person{{UsrName: "alice", Alias: "al"}})

	require.Equal(t, Hash("alice"), ix.SessionHash("alice"))
	require.Equal(t, Hash("alice"), ix.SessionHash("al"))
	require.Equal(t, Hash("alice"), ix.SessionHash(Hash("al")))

	unknown := Hash("carol")
	require.Equal(t, unknown, ix.SessionHash(unknown))
	require.Equal(t, unknown, ix.SessionHash("carol"))
}
