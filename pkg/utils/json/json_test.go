package json

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestMarshalUnmarshal(t *testing.T) {
	in := payload{Name: "fragment", Score: 0.91}

	data, err := Marshal(in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(payload{Name: "a"}))

	var out payload
	require.NoError(t, NewDecoder(&buf).Decode(&out))
	assert.Equal(t, "a", out.Name)
}
