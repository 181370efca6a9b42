// Package webhook verifies and decodes identity provider deliveries signed
// in the Svix format.
package webhook

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	svix "github.com/svix/svix-webhooks/go"
)

const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"
)

var (
	ErrMissingHeaders   = errors.New("webhook: missing signature headers")
	ErrInvalidSecret    = errors.New("webhook: invalid signing secret")
	ErrInvalidTimestamp = errors.New("webhook: invalid timestamp")
	ErrStaleTimestamp   = errors.New("webhook: timestamp outside tolerance")
	ErrNoMatch          = errors.New("webhook: no matching signature")
)

// Headers carries the three signature headers of one delivery.
type Headers struct {
	ID        string
	Timestamp string
	Signature string
}

// HeadersFrom reads the signature headers through get, which is usually a
// request header accessor.
func HeadersFrom(get func(string) string) Headers {
	return Headers{
		ID:        get(HeaderID),
		Timestamp: get(HeaderTimestamp),
		Signature: get(HeaderSignature),
	}
}

// Apply writes h onto an outgoing request header.
func (h Headers) Apply(header http.Header) {
	header.Set(HeaderID, h.ID)
	header.Set(HeaderTimestamp, h.Timestamp)
	header.Set(HeaderSignature, h.Signature)
}

func (h Headers) httpHeader() http.Header {
	header := http.Header{}
	h.Apply(header)
	return header
}

func newWebhook(secret string) (*svix.Webhook, error) {
	secret = strings.TrimSpace(secret)
	if strings.TrimPrefix(secret, "whsec_") == "" {
		return nil, ErrInvalidSecret
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	return wh, nil
}

// Verify checks body against the signature headers. The timestamp must lie
// within tolerance of now in either direction.
func Verify(secret string, h Headers, body []byte, now time.Time, tolerance time.Duration) error {
	if h.ID == "" || h.Timestamp == "" || h.Signature == "" {
		return ErrMissingHeaders
	}

	wh, err := newWebhook(secret)
	if err != nil {
		return err
	}

	ts, err := strconv.ParseInt(h.Timestamp, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}
	sent := time.Unix(ts, 0)
	if sent.Before(now.Add(-tolerance)) || sent.After(now.Add(tolerance)) {
		return ErrStaleTimestamp
	}

	// Tolerance was enforced above.
	if err := wh.VerifyIgnoringTimestamp(body, h.httpHeader()); err != nil {
		return fmt.Errorf("%w: %v", ErrNoMatch, err)
	}
	return nil
}

// Sign produces the headers of a delivery of body. Tests and local tooling
// use it.
func Sign(secret, id string, at time.Time, body []byte) (Headers, error) {
	wh, err := newWebhook(secret)
	if err != nil {
		return Headers{}, err
	}
	sig, err := wh.Sign(id, at, body)
	if err != nil {
		return Headers{}, err
	}
	return Headers{ID: id, Timestamp: strconv.FormatInt(at.Unix(), 10), Signature: sig}, nil
}
