package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchResult struct {
	Query string  `json:"query"`
	Score float64 `json:"score"`
}

func TestStateCodec_RoundTripRegisteredStruct(t *testing.T) {
	codec := NewStateCodec()
	require.NoError(t, codec.Register(searchResult{}, "SearchResult"))

	data, err := codec.Encode(searchResult{Query: "weather", Score: 0.92})
	require.NoError(t, err)

	decoded, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, searchResult{Query: "weather", Score: 0.92}, decoded)
}

func TestStateCodec_RoundTripPointerType(t *testing.T) {
	codec := NewStateCodec()
	require.NoError(t, codec.Register(&searchResult{}, "SearchResultPtr"))

	data, err := codec.Encode(&searchResult{Query: "news"})
	require.NoError(t, err)

	decoded, err := codec.Decode(data)
	require.NoError(t, err)
	require.IsType(t, &searchResult{}, decoded)
	assert.Equal(t, "news", decoded.(*searchResult).Query)
}

func TestStateCodec_UnregisteredValuePassesThrough(t *testing.T) {
	codec := NewStateCodec()

	data, err := codec.Encode(map[string]any{"x": 1.0})
	require.NoError(t, err)

	decoded, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1.0}, decoded)
}

func TestStateCodec_RejectsNonStruct(t *testing.T) {
	codec := NewStateCodec()
	assert.Error(t, codec.Register("a string", "NotAStruct"))
	assert.Error(t, codec.Register(nil, "Nil"))
	assert.Error(t, codec.Register(searchResult{}, ""))
}

func TestStateCodec_RejectsConflictingName(t *testing.T) {
	codec := NewStateCodec()
	require.NoError(t, codec.Register(searchResult{}, "A"))
	assert.Error(t, codec.Register(searchResult{}, "B"))
	// Re-registering under the same name is idempotent.
	assert.NoError(t, codec.Register(searchResult{}, "A"))
}

func TestStateCodec_CustomFuncs(t *testing.T) {
	codec := NewStateCodec()
	err := codec.RegisterWithFuncs(searchResult{}, "Custom",
		func(v any) ([]byte, error) {
			return json.Marshal(v.(searchResult).Query)
		},
		func(data []byte) (any, error) {
			var q string
			if err := json.Unmarshal(data, &q); err != nil {
				return nil, err
			}
			return searchResult{Query: q}, nil
		})
	require.NoError(t, err)

	data, err := codec.Encode(searchResult{Query: "only-query", Score: 3})
	require.NoError(t, err)
	decoded, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, searchResult{Query: "only-query"}, decoded)
}

func TestStateCodec_DecodeUnknownTypeFails(t *testing.T) {
	codec := NewStateCodec()
	registered := NewStateCodec()
	require.NoError(t, registered.Register(searchResult{}, "SearchResult"))

	data, err := registered.Encode(searchResult{Query: "q"})
	require.NoError(t, err)

	_, err = codec.Decode(data)
	assert.ErrorContains(t, err, "unknown state type")
}

func TestStateCodec_EncodeStateRoundTrip(t *testing.T) {
	codec := NewStateCodec()
	require.NoError(t, codec.Register(searchResult{}, "SearchResult"))

	state := map[string]any{
		"result": searchResult{Query: "q", Score: 1},
		"count":  2.0,
		"label":  "done",
	}
	data, err := codec.EncodeState(state)
	require.NoError(t, err)

	decoded, err := codec.DecodeState(data)
	require.NoError(t, err)
	assert.Equal(t, state, decoded)
}

func TestDefaultStateCodec_SharedRegistration(t *testing.T) {
	type localState struct{ N int }
	require.NoError(t, RegisterStateType(localState{}, "codec_test.localState"))

	data, err := DefaultStateCodec().Encode(localState{N: 7})
	require.NoError(t, err)
	decoded, err := DefaultStateCodec().Decode(data)
	require.NoError(t, err)
	assert.Equal(t, localState{N: 7}, decoded)
}
