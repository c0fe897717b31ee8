package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID     int64   `json:"id,omitempty"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
	Note   *string `json:"note"`
}

func TestEncodeRow_NumberTypes(t *testing.T) {
	row, err := EncodeRow(sample{Name: "CAC", Amount: 12.5, Count: 3})
	require.NoError(t, err)

	assert.NotContains(t, row, "id")
	assert.Equal(t, "CAC", row["name"])
	assert.Equal(t, 12.5, row["amount"])
	assert.Equal(t, int64(3), row["count"])
	assert.Nil(t, row["note"])
	assert.Contains(t, row, "note")
}

func TestDecodeRows(t *testing.T) {
	var out []sample
	require.NoError(t, DecodeRows([]Row{
		{"id": int64(1), "name": "A", "amount": int64(2), "count": int64(1), "note": "x"},
		{"id": int64(2), "name": "B", "amount": 2.25, "count": nil, "extra": "ignored"},
	}, &out))

	require.Len(t, out, 2)
	assert.Equal(t, 2.0, out[0].Amount)
	require.NotNil(t, out[0].Note)
	assert.Equal(t, "x", *out[0].Note)
	assert.Equal(t, 0, out[1].Count)

	var empty []sample
	require.NoError(t, DecodeRows(nil, &empty))
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestLikeToRegex(t *testing.T) {
	assert.Equal(t, "^cac$", likeToRegex("cac"))
	assert.Equal(t, "^.*us.*$", likeToRegex("%us%"))
	assert.Equal(t, `^a\.b.$`, likeToRegex("a.b_"))
	assert.Equal(t, "^C_C$", likeToRegex(EscapeLike("C_C")))
	assert.Equal(t, `^50%\.\*!$`, likeToRegex(EscapeLike("50%.*!")))
	assert.Equal(t, "^.*a_b.*$", likeToRegex("%"+EscapeLike("a_b")+"%"))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "CAC", EscapeLike("CAC"))
	assert.Equal(t, "C!_C", EscapeLike("C_C"))
	assert.Equal(t, "!%", EscapeLike("%"))
	assert.Equal(t, "wow!!", EscapeLike("wow!"))
}
