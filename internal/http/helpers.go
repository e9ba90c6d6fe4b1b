package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"finance/internal/core"
)

// maxBodyBytes bounds API request bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// transactionInput is the body of POST and PUT. Amount is a pointer so a
// missing field can be told apart from zero.
type transactionInput struct {
	Text   string       `json:"text"`
	Amount *core.Amount `json:"amount"`
	Type   core.Type    `json:"type"`
	Date   core.Date    `json:"date"`
}

// decodeTransaction reads a transaction body. It rejects malformed JSON,
// a missing or non-numeric amount and an unparsable date. Nothing else is
// validated.
func decodeTransaction(w http.ResponseWriter, r *http.Request) (core.Transaction, error) {
	var in transactionInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&in); err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidDate):
			return core.Transaction{}, errors.New("date must be a calendar date (YYYY-MM-DD)")
		case errors.Is(err, io.EOF):
			return core.Transaction{}, errors.New("request body is empty")
		default:
			return core.Transaction{}, fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	if in.Amount == nil || !in.Amount.Valid() {
		return core.Transaction{}, errors.New("amount must be a number")
	}
	return core.Transaction{
		Text:   sanitizeInput(in.Text),
		Amount: *in.Amount,
		Type:   core.Type(sanitizeInput(string(in.Type))),
		Date:   in.Date,
	}, nil
}

// sanitizeInput trims whitespace and drops control characters other than
// tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
