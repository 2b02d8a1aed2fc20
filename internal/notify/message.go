package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"
)

type Kind string

const (
	KindBooking Kind = "booking"
	KindContact Kind = "contact"
)

// Message is a rendered e-mail ready for a Sender.
type Message struct {
	Kind    Kind   `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	ReplyTo string `json:"replyTo,omitempty"`
}

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type Booking struct {
	To              string
	SlotID          int
	DurationMinutes float64
	ReservedUntil   time.Time
	Amount          string
	Currency        string
	Reference       string
}

// BookingConfirmation renders the message sent after a successful reservation.
func BookingConfirmation(b Booking) (Message, error) {
	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, "booking.html", map[string]any{
		"SlotID":        b.SlotID,
		"Duration":      strconv.FormatFloat(b.DurationMinutes, 'f', -1, 64),
		"ReservedUntil": b.ReservedUntil.UTC().Format(time.RFC1123),
		"Amount":        b.Amount,
		"Currency":      b.Currency,
		"Reference":     b.Reference,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render booking confirmation: %w", err)
	}
	return Message{
		Kind:    KindBooking,
		To:      b.To,
		Subject: fmt.Sprintf("Booking Success - Bay #%d", b.SlotID),
		HTML:    buf.String(),
	}, nil
}

type Contact struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// ContactInquiry renders a contact form submission addressed to owner.
func ContactInquiry(owner string, c Contact) (Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "contact.html", c); err != nil {
		return Message{}, fmt.Errorf("render contact inquiry: %w", err)
	}
	subject := strings.TrimSpace(c.Subject)
	if subject == "" {
		subject = "No Subject"
	}
	return Message{
		Kind:    KindContact,
		To:      owner,
		Subject: "New Contact Message: " + subject,
		HTML:    buf.String(),
		ReplyTo: c.Email,
	}, nil
}
