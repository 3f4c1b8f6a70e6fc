package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	domainErrors "github.com/Adrien490/synclune-sub005/internal/domain/errors"
	"github.com/Adrien490/synclune-sub005/internal/domain/model"
)

// defaultTolerance bounds how old a signed payload may be before it is
// rejected as a possible replay.
const defaultTolerance = 5 * time.Minute

// Verifier authenticates raw webhook payloads and decodes them into typed
// events. Signature header format: "t=<unix>,v1=<hex hmac-sha256>", where the
// MAC covers "<unix>.<raw body>".
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier builds a Verifier for the shared webhook secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret:    []byte(secret),
		tolerance: defaultTolerance,
		now:       time.Now,
	}
}

// Verify validates the signature header against the raw body and decodes the
// payload. It fails with ErrSignatureInvalid for missing, stale, or
// mismatched signatures and ErrMalformedEvent for undecodable payloads.
func (v *Verifier) Verify(body []byte, sigHeader string) (*model.Event, error) {
	timestamp, signature, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, err
	}

	age := v.now().Sub(time.Unix(timestamp, 0))
	if age > v.tolerance || age < -v.tolerance {
		return nil, fmt.Errorf("timestamp outside tolerance: %w", domainErrors.ErrSignatureInvalid)
	}

	expected := computeSignature(v.secret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, domainErrors.ErrSignatureInvalid
	}

	return decodeEvent(body)
}

func parseSignatureHeader(header string) (int64, string, error) {
	if header == "" {
		return 0, "", fmt.Errorf("missing signature header: %w", domainErrors.ErrSignatureInvalid)
	}

	var (
		timestamp int64
		signature string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("bad timestamp: %w", domainErrors.ErrSignatureInvalid)
			}
			timestamp = parsed
		case "v1":
			signature = value
		}
	}

	if timestamp == 0 || signature == "" {
		return 0, "", fmt.Errorf("incomplete signature header: %w", domainErrors.ErrSignatureInvalid)
	}
	return timestamp, signature, nil
}

func computeSignature(secret []byte, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignPayload produces a valid signature header for body at the given time.
// Used by tests and local tooling to forge provider deliveries.
func SignPayload(secret string, at time.Time, body []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), computeSignature([]byte(secret), at.Unix(), body))
}
