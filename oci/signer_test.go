package oci

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClock = func() time.Time {
	return time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)
}

func writeTestKey(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, pemBytes, 0600))

	return path, key
}

func newTestSigner(t *testing.T) (*Signer, *rsa.PrivateKey) {
	t.Helper()

	path, key := writeTestKey(t)
	signer, err := NewSigner("tenancy-ocid", "user-ocid", "11:22:33", path)
	require.NoError(t, err)
	signer.now = testClock

	return signer, key
}

func findHeader(t *testing.T, headers []Header, name string) string {
	t.Helper()
	for _, h := range headers {
		if h.Name == name {
			return h.Value
		}
	}
	t.Fatalf("header '%s' not found in %v", name, headers)
	return ""
}

func TestNewSignerKeyNotFound(t *testing.T) {
	_, err := NewSigner("t", "u", "f", filepath.Join(t.TempDir(), "nope.pem"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestNewSignerMalformedKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a key"), 0600))

	_, err := NewSigner("t", "u", "f", path)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNewSignerNonRSAKey(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{
		Type:  "EC PRIVATE KEY",
		Bytes: der,
	}), 0600))

	_, err = NewSigner("t", "u", "f", path)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestSignIsDeterministic(t *testing.T) {
	signer, _ := newTestSigner(t)

	first, err := signer.Sign("POST", "https://iaas.eu-zurich-1.oraclecloud.com/20160918/instances", []byte(`{"a":1}`), "application/json")
	require.NoError(t, err)
	second, err := signer.Sign("POST", "https://iaas.eu-zurich-1.oraclecloud.com/20160918/instances", []byte(`{"a":1}`), "application/json")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSignGetRequest(t *testing.T) {
	signer, key := newTestSigner(t)

	headers, err := signer.Sign("GET", "https://iaas.eu-zurich-1.oraclecloud.com/20160918/instances?compartmentId=xyz", nil, "")
	require.NoError(t, err)

	// No body headers on a GET
	names := make([]string, len(headers))
	for i, h := range headers {
		names[i] = h.Name
	}
	assert.Equal(t, []string{"date", "host", "Authorization"}, names)

	assert.Equal(t, "Fri, 01 Mar 2024 12:30:45 GMT", findHeader(t, headers, "date"))
	assert.Equal(t, "iaas.eu-zurich-1.oraclecloud.com", findHeader(t, headers, "host"))

	authorization := findHeader(t, headers, "Authorization")
	assert.Contains(t, authorization, `Signature version="1"`)
	assert.Contains(t, authorization, `keyId="tenancy-ocid/user-ocid/11:22:33"`)
	assert.Contains(t, authorization, `algorithm="rsa-sha256"`)
	assert.Contains(t, authorization, `headers="(request-target) date host"`)

	// The signature must verify against the reconstructed signing string
	signingString := strings.Join([]string{
		"(request-target): get /20160918/instances?compartmentId=xyz",
		"date: Fri, 01 Mar 2024 12:30:45 GMT",
		"host: iaas.eu-zurich-1.oraclecloud.com",
	}, "\n")
	assertSignatureValid(t, &key.PublicKey, authorization, signingString)
}

func TestSignPostRequest(t *testing.T) {
	signer, key := newTestSigner(t)
	body := []byte(`{"shape":"VM.Standard.A1.Flex"}`)

	headers, err := signer.Sign("POST", "https://iaas.eu-zurich-1.oraclecloud.com/20160918/instances", body, "application/json")
	require.NoError(t, err)

	digest := sha256.Sum256(body)
	sha := base64.StdEncoding.EncodeToString(digest[:])

	assert.Equal(t, sha, findHeader(t, headers, "x-content-sha256"))
	assert.Equal(t, "application/json", findHeader(t, headers, "content-type"))
	assert.Equal(t, fmt.Sprint(len(body)), findHeader(t, headers, "content-length"))

	authorization := findHeader(t, headers, "Authorization")
	assert.Contains(t, authorization, `headers="(request-target) date host x-content-sha256 content-type content-length"`)

	signingString := strings.Join([]string{
		"(request-target): post /20160918/instances",
		"date: Fri, 01 Mar 2024 12:30:45 GMT",
		"host: iaas.eu-zurich-1.oraclecloud.com",
		"x-content-sha256: " + sha,
		"content-type: application/json",
		"content-length: " + fmt.Sprint(len(body)),
	}, "\n")
	assertSignatureValid(t, &key.PublicKey, authorization, signingString)
}

func TestSignEmptyBodyPost(t *testing.T) {
	// An empty POST body still hashes: base64(sha256("")) is well-defined
	signer, _ := newTestSigner(t)

	headers, err := signer.Sign("POST", "https://iaas.eu-zurich-1.oraclecloud.com/20160918/instances", nil, "application/json")
	require.NoError(t, err)

	digest := sha256.Sum256(nil)
	assert.Equal(t, base64.StdEncoding.EncodeToString(digest[:]), findHeader(t, headers, "x-content-sha256"))
	assert.Equal(t, "0", findHeader(t, headers, "content-length"))
}

func assertSignatureValid(t *testing.T, key *rsa.PublicKey, authorization, signingString string) {
	t.Helper()

	_, after, found := strings.Cut(authorization, `signature="`)
	require.True(t, found, "no signature in Authorization header")
	encoded := strings.TrimSuffix(after, `"`)

	signature, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	hashed := sha256.Sum256([]byte(signingString))
	assert.NoError(t, rsa.VerifyPKCS1v15(key, crypto.SHA256, hashed[:], signature))
}

func TestSignInvalidURL(t *testing.T) {
	signer, _ := newTestSigner(t)

	_, err := signer.Sign("GET", "://not-a-url", nil, "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSigningFailed), "URL parsing is not a signing failure")
}
