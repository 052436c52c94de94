package httpsig

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"
)

// hs2019 is what newer Mastodon versions advertise for the same RSA scheme.
const algorithmHS2019 = "hs2019"

// MaxClockSkew bounds how far the signed Date may be from the receiver's clock.
const MaxClockSkew = 12 * time.Hour

var requiredHeaders = []string{"(request-target)", "host", "date"}

type Params struct {
	KeyID     string
	Algorithm string
	Headers   []string
	Signature []byte
}

// Request holds the facts of a received request needed to rebuild its
// signing string.
type Request struct {
	Method string
	// Target is the request URI as received: path plus optional query.
	Target string
	Host   string
	Header http.Header
	Body   []byte
}

func FromHTTP(r *http.Request, body []byte) Request {
	return Request{
		Method: r.Method,
		Target: r.URL.RequestURI(),
		Host:   r.Host,
		Header: r.Header,
		Body:   body,
	}
}

func ParseSignatureHeader(value string) (Params, error) {
	var params Params

	rest := strings.TrimSpace(value)
	for rest != "" {
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			return Params{}, fmt.Errorf("%w: malformed parameter in %q", ErrSignature, value)
		}
		name := strings.TrimSpace(rest[:eq])
		rest = rest[eq+1:]

		if !strings.HasPrefix(rest, `"`) {
			return Params{}, fmt.Errorf("%w: unquoted value for %s", ErrSignature, name)
		}
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			return Params{}, fmt.Errorf("%w: unterminated value for %s", ErrSignature, name)
		}
		val := rest[1 : end+1]
		rest = strings.TrimLeft(strings.TrimSpace(rest[end+2:]), ",")
		rest = strings.TrimSpace(rest)

		switch name {
		case "keyId":
			params.KeyID = val
		case "algorithm":
			params.Algorithm = val
		case "headers":
			params.Headers = strings.Fields(strings.ToLower(val))
		case "signature":
			sig, err := base64.StdEncoding.DecodeString(val)
			if err != nil {
				return Params{}, fmt.Errorf("%w: signature is not base64: %w", ErrSignature, err)
			}
			params.Signature = sig
		}
	}

	if params.KeyID == "" {
		return Params{}, fmt.Errorf("%w: missing keyId", ErrSignature)
	}
	if len(params.Signature) == 0 {
		return Params{}, fmt.Errorf("%w: missing signature", ErrSignature)
	}
	if len(params.Headers) == 0 {
		params.Headers = []string{"date"}
	}

	return params, nil
}

// KeyIDOf returns the keyId of a request's Signature header.
func KeyIDOf(header http.Header) (string, error) {
	value := header.Get(HeaderSignature)
	if value == "" {
		return "", fmt.Errorf("%w: no Signature header", ErrSignature)
	}
	params, err := ParseSignatureHeader(value)
	if err != nil {
		return "", err
	}
	return params.KeyID, nil
}

// Verify rebuilds the signing string from the headers named by the signature
// and checks it against key. The signature must cover the request target,
// host and date, plus the digest of a non-empty body, and the date must be
// within MaxClockSkew of now. The target is tried with its query first, then
// path-only.
func Verify(req Request, key *rsa.PublicKey) error {
	value := req.Header.Get(HeaderSignature)
	if value == "" {
		return fmt.Errorf("%w: no Signature header", ErrSignature)
	}
	params, err := ParseSignatureHeader(value)
	if err != nil {
		return err
	}

	switch strings.ToLower(params.Algorithm) {
	case "", Algorithm, algorithmHS2019:
	default:
		return fmt.Errorf("%w: unsupported algorithm %q", ErrSignature, params.Algorithm)
	}

	required := requiredHeaders
	if len(req.Body) > 0 {
		required = append(slices.Clone(required), "digest")
	}
	for _, name := range required {
		if !slices.Contains(params.Headers, name) {
			return fmt.Errorf("%w: %q is not signed", ErrSignature, name)
		}
	}

	date, err := http.ParseTime(req.Header.Get(HeaderDate))
	if err != nil {
		return fmt.Errorf("%w: bad Date header: %w", ErrSignature, err)
	}
	if skew := time.Since(date).Abs(); skew > MaxClockSkew {
		return fmt.Errorf("%w: date is %s off", ErrSignature, skew.Round(time.Second))
	}

	if len(req.Body) > 0 {
		got := req.Header.Get(HeaderDigest)
		if got == "" {
			return fmt.Errorf("%w: body without Digest header", ErrSignature)
		}
		if !digestMatches(got, req.Body) {
			return fmt.Errorf("%w: digest mismatch", ErrSignature)
		}
	}

	targets := []string{req.Target}
	if path, _, found := strings.Cut(req.Target, "?"); found {
		targets = append(targets, path)
	}

	for _, target := range targets {
		fields, err := signedFields(req, target, params.Headers)
		if err != nil {
			return err
		}
		if VerifySHA256(key, []byte(signingString(fields)), params.Signature) {
			return nil
		}
	}
	return fmt.Errorf("%w: signature does not verify", ErrSignature)
}

func signedFields(req Request, target string, names []string) ([]field, error) {
	fields := make([]field, 0, len(names))
	for _, name := range names {
		switch name {
		case "(request-target)":
			fields = append(fields, field{name: name, value: strings.ToLower(req.Method) + " " + target})
		case "host":
			host := req.Header.Get(HeaderHost)
			if host == "" {
				host = req.Host
			}
			fields = append(fields, field{name: name, value: host})
		default:
			values := req.Header.Values(name)
			if len(values) == 0 {
				return nil, fmt.Errorf("%w: signed header %q is missing", ErrSignature, name)
			}
			fields = append(fields, field{name: name, value: strings.Join(values, ", ")})
		}
	}
	return fields, nil
}

// digestMatches accepts the algorithm prefix in any case, as some servers
// send "sha-256=".
func digestMatches(header string, body []byte) bool {
	want := Digest(body)
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if len(part) < len(digestPrefix) {
			continue
		}
		if strings.EqualFold(part[:len(digestPrefix)], digestPrefix) && part[len(digestPrefix):] == want[len(digestPrefix):] {
			return true
		}
	}
	return false
}
