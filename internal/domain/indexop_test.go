package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techresidents/indexsvc/internal/domain"
)

func TestIndexOp_RoundTrip(t *testing.T) {
	ops := []domain.IndexOp{
		{Action: domain.ActionUpdate, Name: "users", Type: "user", Keys: []string{"1"}},
		{Action: domain.ActionCreate, Name: "technologies", Type: "technology", Keys: []string{"7", "8", "9"}},
		{Action: domain.ActionUpdate, Name: "topics", Type: "topic", Keys: []string{}},
		{Action: domain.ActionDelete, Name: "locations", Type: "location", Keys: []string{"42"}},
	}
	for _, op := range ops {
		b, err := domain.EncodeIndexOp(op)
		require.NoError(t, err)
		got, err := domain.DecodeIndexOp(b)
		require.NoError(t, err)
		assert.Equal(t, op, got)
	}
}

func TestIndexOp_EncodeNormalizesNilKeys(t *testing.T) {
	b, err := domain.EncodeIndexOp(domain.IndexOp{Action: domain.ActionUpdate, Name: "users", Type: "user"})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"keys":[]`)

	got, err := domain.DecodeIndexOp(b)
	require.NoError(t, err)
	assert.NotNil(t, got.Keys)
	assert.Empty(t, got.Keys)
}

func TestIndexOp_EncodeRejectsUnknownAction(t *testing.T) {
	_, err := domain.EncodeIndexOp(domain.IndexOp{Action: "UPSERT", Name: "users", Type: "user"})
	require.ErrorIs(t, err, domain.ErrInvalidData)
}

func TestIndexOp_DecodeErrors(t *testing.T) {
	cases := map[string]string{
		"malformed json": `{"action":`,
		"unknown action": `{"action":"MERGE","name":"users","type":"user","keys":[]}`,
		"empty name":     `{"action":"UPDATE","name":"","type":"user","keys":[]}`,
		"empty type":     `{"action":"UPDATE","name":"users","type":"","keys":[]}`,
		"delete no keys": `{"action":"DELETE","name":"users","type":"user","keys":[]}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := domain.DecodeIndexOp([]byte(payload))
			require.ErrorIs(t, err, domain.ErrDecode)
		})
	}
}

func TestIndexOp_DecodedActionIsAuthoritative(t *testing.T) {
	// A payload written as DELETE dictates delete at execution time no
	// matter which API created the row.
	op, err := domain.DecodeIndexOp([]byte(`{"action":"DELETE","name":"users","type":"user","keys":["3"]}`))
	require.NoError(t, err)
	assert.Equal(t, domain.ActionDelete, op.Action)
	assert.Equal(t, []string{"3"}, op.Keys)
}

func TestIndexJob_Terminal(t *testing.T) {
	var j domain.IndexJob
	assert.False(t, j.Terminal())
	ok := true
	j.Successful = &ok
	assert.True(t, j.Terminal())
}
