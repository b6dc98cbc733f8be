package utils

import (
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// ==================== UUID ====================

func ParseUUID(uuidStr string) (uuid.UUID, error) {
	return uuid.Parse(uuidStr)
}

// ParseUUIDs parses every string or stops at the first invalid one.
func ParseUUIDs(values []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(values))
	for i, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// ==================== TICKET CODE ====================

const ticketCodeLength = 12

var ticketEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// TicketCode derives the code printed on a ticket. The code is a keyed
// BLAKE2b MAC over the ticket's identity, so a door scanner holding the key
// can verify a code without a lookup.
func TicketCode(key []byte, ticketID, sessionID, seatID uuid.UUID) (string, error) {
	if len(key) > blake2b.Size {
		key = key[:blake2b.Size]
	}

	h, err := blake2b.New256(key)
	if err != nil {
		return "", err
	}
	h.Write(ticketID[:])
	h.Write(sessionID[:])
	h.Write(seatID[:])

	code := ticketEncoding.EncodeToString(h.Sum(nil))
	return strings.ToUpper(code[:ticketCodeLength]), nil
}

// VerifyTicketCode reports whether code was issued for the given ticket.
func VerifyTicketCode(key []byte, code string, ticketID, sessionID, seatID uuid.UUID) bool {
	want, err := TicketCode(key, ticketID, sessionID, seatID)
	if err != nil {
		return false
	}
	return strings.EqualFold(want, code)
}
