package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUUIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	ids, err := ParseUUIDs([]string{a.String(), b.String()})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, ids)

	_, err = ParseUUIDs([]string{a.String(), "A1"})
	assert.Error(t, err)
}

func TestTicketCode(t *testing.T) {
	key := []byte("door-scanner-key")
	ticket, session, seat := uuid.New(), uuid.New(), uuid.New()

	code, err := TicketCode(key, ticket, session, seat)
	require.NoError(t, err)
	assert.Len(t, code, 12)

	again, err := TicketCode(key, ticket, session, seat)
	require.NoError(t, err)
	assert.Equal(t, code, again)

	assert.True(t, VerifyTicketCode(key, code, ticket, session, seat))
	assert.False(t, VerifyTicketCode([]byte("other-key"), code, ticket, session, seat))
	assert.False(t, VerifyTicketCode(key, code, ticket, session, uuid.New()))
}

func TestTicketCodeLongKey(t *testing.T) {
	key := make([]byte, 100)
	for i := range key {
		key[i] = byte(i)
	}

	code, err := TicketCode(key, uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.NotEmpty(t, code)
}
