package helpers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidPass = errors.New("invalid QR data format")

// PassSigner produces and checks the payload encoded in a ticket's QR pass.
// Payload: ticket:<id>;event:<id>;signature:<hex hmac-sha256>.
type PassSigner struct {
	secret []byte
}

func NewPassSigner(secret string) *PassSigner {
	return &PassSigner{secret: []byte(secret)}
}

type Pass struct {
	TicketID  uuid.UUID
	EventID   uuid.UUID
	Signature string
}

func (p *PassSigner) signature(ticketID, eventID, userID uuid.UUID, nftID string) string {
	data := fmt.Sprintf("%s:%s:%s:%s", ticketID, eventID, userID, nftID)
	h := hmac.New(sha256.New, p.secret)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func (p *PassSigner) Encode(ticketID, eventID, userID uuid.UUID, nftID string) string {
	return fmt.Sprintf("ticket:%s;event:%s;signature:%s",
		ticketID, eventID, p.signature(ticketID, eventID, userID, nftID))
}

func (p *PassSigner) Parse(qrData string) (Pass, error) {
	parts := strings.Split(qrData, ";")
	if len(parts) != 3 ||
		!strings.HasPrefix(parts[0], "ticket:") ||
		!strings.HasPrefix(parts[1], "event:") ||
		!strings.HasPrefix(parts[2], "signature:") {
		return Pass{}, ErrInvalidPass
	}
	ticketID, err := uuid.Parse(strings.TrimPrefix(parts[0], "ticket:"))
	if err != nil {
		return Pass{}, ErrInvalidPass
	}
	eventID, err := uuid.Parse(strings.TrimPrefix(parts[1], "event:"))
	if err != nil {
		return Pass{}, ErrInvalidPass
	}
	return Pass{
		TicketID:  ticketID,
		EventID:   eventID,
		Signature: strings.TrimPrefix(parts[2], "signature:"),
	}, nil
}

// Valid reports whether pass was issued for this ticket holder.
func (p *PassSigner) Valid(pass Pass, userID uuid.UUID, nftID string) bool {
	expected := p.signature(pass.TicketID, pass.EventID, userID, nftID)
	return hmac.Equal([]byte(expected), []byte(pass.Signature))
}
