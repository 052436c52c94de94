// Package httpsig implements the draft-cavage HTTP Signatures scheme used by
// ActivityPub servers, with rsa-sha256 only.
package httpsig

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	Algorithm = "rsa-sha256"

	HeaderSignature = "Signature"
	HeaderDigest    = "Digest"
	HeaderDate      = "Date"
	HeaderHost      = "Host"

	digestPrefix = "SHA-256="
)

// Headers are the values a signed request must carry verbatim.
type Headers struct {
	Host      string
	Date      string
	Digest    string
	Signature string
}

func (h Headers) HasDigest() bool {
	return h.Digest != ""
}

// Apply copies the signed headers onto an outgoing request header set.
func (h Headers) Apply(header http.Header) {
	header.Set(HeaderHost, h.Host)
	header.Set(HeaderDate, h.Date)
	if h.HasDigest() {
		header.Set(HeaderDigest, h.Digest)
	}
	header.Set(HeaderSignature, h.Signature)
}

// Map returns the headers in a form suitable for HTTP client libraries.
func (h Headers) Map() map[string]string {
	m := map[string]string{
		HeaderHost:      h.Host,
		HeaderDate:      h.Date,
		HeaderSignature: h.Signature,
	}
	if h.HasDigest() {
		m[HeaderDigest] = h.Digest
	}
	return m
}

type Signer struct {
	Key   *rsa.PrivateKey
	KeyID string

	// Now is overridable in tests.
	Now func() time.Time
}

func (s Signer) Sign(method, rawURL string, body []byte) (Headers, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return sign(method, rawURL, body, s.Key, s.KeyID, now())
}

// Sign builds the signature headers for a request.
func Sign(method, rawURL string, body []byte, key *rsa.PrivateKey, keyID string) (Headers, error) {
	return sign(method, rawURL, body, key, keyID, time.Now())
}

func sign(method, rawURL string, body []byte, key *rsa.PrivateKey, keyID string, now time.Time) (Headers, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Headers{}, fmt.Errorf("%w: %w", ErrURL, err)
	}
	if u.Host == "" {
		return Headers{}, fmt.Errorf("%w: no host in %q", ErrURL, rawURL)
	}
	if key == nil {
		return Headers{}, fmt.Errorf("%w: no private key", ErrSigning)
	}

	out := Headers{
		Host: u.Host,
		Date: FormatDate(now),
	}
	if len(body) > 0 {
		out.Digest = Digest(body)
	}

	fields := []field{
		{name: "(request-target)", value: RequestTarget(method, u)},
		{name: "host", value: out.Host},
		{name: "date", value: out.Date},
	}
	if out.HasDigest() {
		fields = append(fields, field{name: "digest", value: out.Digest})
	}

	sig, err := SignSHA256(key, []byte(signingString(fields)))
	if err != nil {
		return Headers{}, err
	}

	out.Signature = fmt.Sprintf(`keyId="%s",algorithm="%s",headers="%s",signature="%s"`,
		keyID,
		Algorithm,
		headerNames(fields),
		base64.StdEncoding.EncodeToString(sig),
	)

	return out, nil
}

// FormatDate renders t as an RFC 1123 date in GMT.
func FormatDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return digestPrefix + base64.StdEncoding.EncodeToString(sum[:])
}

// RequestTarget is the lowercased method followed by the request path. The
// query is not signed.
func RequestTarget(method string, u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return strings.ToLower(method) + " " + path
}

type field struct {
	name  string
	value string
}

func signingString(fields []field) string {
	lines := make([]string, len(fields))
	for i, f := range fields {
		lines[i] = f.name + ": " + f.value
	}
	return strings.Join(lines, "\n")
}

func headerNames(fields []field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
	}
	return strings.Join(names, " ")
}
