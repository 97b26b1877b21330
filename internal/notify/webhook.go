package notify

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTimeout = 15 * time.Second
	// signatureTTL bounds how long a relay may accept a signed delivery.
	signatureTTL = time.Minute
	// SignatureHeader carries the HS256 JWT binding a delivery to its body.
	SignatureHeader = "X-Relay-Signature"
	signatureIssuer = "volunteer-platform"
)

// DeliveryClaims are the claims of the signature JWT. BodySHA256 is the hex digest of the request body.
type DeliveryClaims struct {
	jwt.RegisteredClaims
	BodySHA256 string `json:"body_sha256"`
}

// WebhookNotifier posts messages as JSON to a mail relay. With SigningKey set every request
// also carries SignatureHeader so the relay can reject replayed or altered deliveries.
type WebhookNotifier struct {
	APIKey     string
	URL        string
	SigningKey []byte
	HTTPClient *http.Client
	now        func() time.Time
}

// NewWebhookNotifier returns a notifier that posts to url, authenticating with apiKey when set.
func NewWebhookNotifier(url, apiKey string) *WebhookNotifier {
	return &WebhookNotifier{
		APIKey:     apiKey,
		URL:        url,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
	}
}

// WithSigningKey enables delivery signatures and returns c. An empty key disables them.
func (c *WebhookNotifier) WithSigningKey(key string) *WebhookNotifier {
	c.SigningKey = []byte(key)
	return c
}

// sign returns the compact JWT for body.
func (c *WebhookNotifier) sign(body []byte, recipient string) (string, error) {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	t := now()
	sum := sha256.Sum256(body)
	claims := DeliveryClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    signatureIssuer,
			Subject:   recipient,
			IssuedAt:  jwt.NewNumericDate(t),
			ExpiresAt: jwt.NewNumericDate(t.Add(signatureTTL)),
		},
		BodySHA256: hex.EncodeToString(sum[:]),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.SigningKey)
}

// VerifyDelivery checks a SignatureHeader value against body and key, as a relay would.
func VerifyDelivery(signature string, body, key []byte) (*DeliveryClaims, error) {
	claims := &DeliveryClaims{}
	_, err := jwt.ParseWithClaims(signature, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(signatureIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("notify: signature: %w", err)
	}
	sum := sha256.Sum256(body)
	if claims.BodySHA256 != hex.EncodeToString(sum[:]) {
		return nil, fmt.Errorf("notify: signature does not match body")
	}
	return claims, nil
}

// Notify posts msg. Any non-2xx answer is an error. Does not log the link.
func (c *WebhookNotifier) Notify(ctx context.Context, msg Message) error {
	if c.URL == "" {
		return fmt.Errorf("notify: webhook URL not configured")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", c.APIKey)
	}
	if len(c.SigningKey) > 0 {
		sig, err := c.sign(raw, msg.Email)
		if err != nil {
			return fmt.Errorf("notify: sign: %w", err)
		}
		req.Header.Set(SignatureHeader, sig)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
