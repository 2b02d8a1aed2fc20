package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ResendSender delivers messages through the Resend HTTP API.
type ResendSender struct {
	hc      *http.Client
	apiKey  string
	from    string
	baseURL string
}

func NewResendSender(apiKey, from, baseURL string) *ResendSender {
	return &ResendSender{
		hc:      &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

func (r *ResendSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(resendEmail{
		From:    r.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return err
	}

	status, resp, err := r.do(ctx, http.MethodPost, r.baseURL+"/emails", body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	if status < 200 || status >= 300 {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(resp, &e)
		if e.Message != "" {
			return fmt.Errorf("%w: resend: %s (status=%d)", ErrDelivery, e.Message, status)
		}
		return fmt.Errorf("%w: resend status=%d", ErrDelivery, status)
	}
	return nil
}

func (r *ResendSender) do(ctx context.Context, method, rawURL string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("authorization", "Bearer "+r.apiKey)

	res, err := r.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, b, nil
}
