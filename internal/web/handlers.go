package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/example/parkour/internal/booking"
	"github.com/example/parkour/internal/notify"
)

const maxBody = 64 << 10

const msgSlotNotAvailable = "Slot not available"

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.ListSlots())
}

type bookingBody struct {
	SlotID   json.RawMessage `json:"slotId"`
	Duration json.RawMessage `json:"duration"`
	Email    string          `json:"email"`
	Amount   json.RawMessage `json:"amount"`
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var body bookingBody
	if err := decodeBody(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid request"})
		return
	}

	req := booking.Request{
		SlotID:          parseSlotID(body.SlotID),
		DurationMinutes: parseDuration(body.Duration),
		Email:           strings.TrimSpace(body.Email),
		Amount:          parseAmount(body.Amount),
	}
	res, err := s.Engine.Reserve(r.Context(), req)
	if err != nil {
		code := reserveErrorCode(err)
		if code == "" {
			s.log().Errorw("booking failed", "slot", req.SlotID, "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Internal error"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": msgSlotNotAvailable, "code": code})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Booking confirmed",
		"bookingId":     res.ID,
		"slotId":        res.SlotID,
		"reservedUntil": res.ReservedUntil,
		"amount":        res.Amount,
		"currency":      res.Currency,
		"reference":     res.Reference,
	})
}

func reserveErrorCode(err error) string {
	switch {
	case errors.Is(err, booking.ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, booking.ErrSlotNotFound):
		return "slot_not_found"
	case errors.Is(err, booking.ErrInvalidDuration):
		return "invalid_duration"
	}
	return ""
}

func (s *Server) handleBookingStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Engine.Verify(mux.Vars(r)["reference"])
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Booking not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bookingId":     st.BookingID,
		"slotId":        st.SlotID,
		"reservedUntil": st.ReservedUntil,
		"active":        st.Active,
	})
}

type contactBody struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var body contactBody
	if err := decodeBody(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid request"})
		return
	}

	fail := func(err error) {
		s.log().Warnw("contact: send failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "Failed to send message"})
	}
	if s.Contact == nil || s.OwnerEmail == "" {
		fail(notify.ErrNotConfigured)
		return
	}
	msg, err := notify.ContactInquiry(s.OwnerEmail, notify.Contact{
		Name:    strings.TrimSpace(body.Name),
		Email:   strings.TrimSpace(body.Email),
		Subject: strings.TrimSpace(body.Subject),
		Message: body.Message,
	})
	if err != nil {
		fail(err)
		return
	}
	if err := s.Contact.Send(r.Context(), msg); err != nil {
		fail(err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Message received"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	return dec.Decode(v)
}

// parseSlotID accepts only integral JSON numbers; anything else maps to an
// id outside every pool.
func parseSlotID(raw json.RawMessage) int {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || !isJSONNumber(raw) {
		return 0
	}
	id, err := strconv.Atoi(n.String())
	if err != nil {
		return 0
	}
	return id
}

// parseDuration accepts a JSON number or a numeric string. Anything else
// yields NaN, which the engine rejects.
func parseDuration(raw json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil && isJSONNumber(raw) {
		return f
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			return v
		}
	}
	return math.NaN()
}

func parseAmount(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	if isJSONNumber(raw) {
		return string(raw)
	}
	return ""
}

func isJSONNumber(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	c := raw[0]
	return c == '-' || (c >= '0' && c <= '9')
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
