package masterlist

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundlens/internal/artifacts"
)

func newTestStore(t *testing.T) *Store {
	store, err := artifacts.New(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return NewStore(store, zerolog.Nop())
}

func TestEntryJSON_PairForm(t *testing.T) {
	e := Entry{Code: "001", Name: "Acme Fund - Direct - Growth"}

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `["001","Acme Fund - Direct - Growth"]`, string(data))

	var back Entry
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, e, back)
}

func TestRepresentativeJSON_TupleForm(t *testing.T) {
	r := &Representative{Code: "001", Name: "Acme Fund", Reason: ReasonDirectGrowth, Score: 100}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `["001","Acme Fund","direct_growth",100]`, string(data))

	var back Representative
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *r, back)
}

func TestRepresentativeJSON_EmptyRendersNulls(t *testing.T) {
	r := &Representative{Reason: ReasonEmpty}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `[null,null,"empty",0]`, string(data))
}

func TestMasterArtifact_RoundTripAndFreshness(t *testing.T) {
	store := newTestStore(t)

	_, fresh := store.LoadMasterIfFresh()
	assert.False(t, fresh, "missing artifact is never fresh")
	assert.Nil(t, store.LoadMaster())

	master := map[string]string{"acme fund": "001"}
	require.NoError(t, store.SaveMaster(master, 10, 1))

	loaded, fresh := store.LoadMasterIfFresh()
	assert.True(t, fresh)
	assert.Equal(t, master, loaded)
	assert.Equal(t, master, store.LoadMaster())
}

func TestParentArtifact_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	groups := map[string][]Entry{
		"acme fund": {{Code: "001", Name: "Acme Fund - Direct - Growth"}},
	}
	reps := map[string]*Representative{
		"acme fund": {Code: "001", Name: "Acme Fund - Direct - Growth", Reason: ReasonDirectGrowth, Score: 100},
	}
	require.NoError(t, store.SaveParents(groups, reps, 1))

	payload, err := store.LoadParents()
	require.NoError(t, err)
	assert.Equal(t, groups, payload.Parents)
	require.NotNil(t, payload.Reps["acme fund"])
	assert.Equal(t, "001", payload.Reps["acme fund"].Code)
	assert.Equal(t, 1, payload.Meta.Parents)
}
