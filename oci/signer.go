package oci

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// Signing scheme: https://docs.oracle.com/en-us/iaas/Content/API/Concepts/signingrequests.htm

// Header is a single request header. Signed headers are carried as an ordered
// slice: the order of the signing string and of the Authorization header's
// "headers" list must match exactly, so a map would be a correctness bug.
type Header struct {
	Name  string
	Value string
}

// Signer produces the signed header set the provider requires on every request.
type Signer struct {
	keyID string
	key   *rsa.PrivateKey
	now   func() time.Time
}

// NewSigner loads the tenant's RSA private key and binds it to the identity
// triple used as the signature keyId.
func NewSigner(tenancy, user, fingerprint, keyFile string) (*Signer, error) {
	pemBytes, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrKeyNotFound, keyFile, err)
	}

	rawKey, err := ssh.ParseRawPrivateKey(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	key, ok := rawKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected an RSA key, got %T", ErrInvalidKey, rawKey)
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	return &Signer{
		keyID: fmt.Sprintf("%s/%s/%s", tenancy, user, fingerprint),
		key:   key,
		now:   time.Now,
	}, nil
}

// Sign builds the header set for a single request: date, host, the body
// digest headers for methods that carry one, and the Authorization header
// over all of them. Headers are derived fresh for every call and must not be
// reused across URLs or bodies.
func (s *Signer) Sign(method, rawURL string, body []byte, contentType string) ([]Header, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url '%s': %w", rawURL, err)
	}

	target := u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}

	signed := []Header{
		{"(request-target)", strings.ToLower(method) + " " + target},
		{"date", s.now().UTC().Format(http.TimeFormat)},
		{"host", u.Host},
	}

	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		digest := sha256.Sum256(body)
		signed = append(signed,
			Header{"x-content-sha256", base64.StdEncoding.EncodeToString(digest[:])},
			Header{"content-type", contentType},
			Header{"content-length", strconv.Itoa(len(body))},
		)
	}

	names := make([]string, len(signed))
	lines := make([]string, len(signed))
	for i, h := range signed {
		names[i] = h.Name
		lines[i] = h.Name + ": " + h.Value
	}

	hashed := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	signature, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, hashed[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	authorization := fmt.Sprintf(
		`Signature version="1",keyId="%s",algorithm="rsa-sha256",headers="%s",signature="%s"`,
		s.keyID, strings.Join(names, " "), base64.StdEncoding.EncodeToString(signature),
	)

	// (request-target) is a pseudo-header, only part of the signing string
	headers := append([]Header{}, signed[1:]...)
	return append(headers, Header{"Authorization", authorization}), nil
}
