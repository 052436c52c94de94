package httpsig

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
)

const (
	KeyBits = 2048

	pemPKCS1Private = "RSA PRIVATE KEY"
	pemPKCS8Private = "PRIVATE KEY"
	pemPKCS1Public  = "RSA PUBLIC KEY"
	pemPKIXPublic   = "PUBLIC KEY"
)

func GenerateKey() (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKey, err)
	}
	return key, nil
}

func EncodePrivateKeyPKCS1(key *rsa.PrivateKey) string {
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  pemPKCS1Private,
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}))
}

func EncodePublicKeyPKCS1(key *rsa.PublicKey) string {
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  pemPKCS1Public,
		Bytes: x509.MarshalPKCS1PublicKey(key),
	}))
}

func EncodePrivateKeyPKCS8(key *rsa.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrKey, err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: pemPKCS8Private, Bytes: der})), nil
}

func EncodePublicKeyPKIX(key *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrKey, err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: pemPKIXPublic, Bytes: der})), nil
}

// DecodePrivateKey accepts PKCS#1 and PKCS#8 encoded RSA private keys.
func DecodePrivateKey(data string) (*rsa.PrivateKey, error) {
	block, err := decodePEM(data)
	if err != nil {
		return nil, err
	}

	switch block.Type {
	case pemPKCS1Private:
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKey, err)
		}
		return key, nil
	case pemPKCS8Private:
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKey, err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA private key: %T", ErrKey, parsed)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrKey, block.Type)
	}
}

// DecodePublicKey accepts PKCS#1 and PKIX encoded RSA public keys. Remote servers
// publish PEM with arbitrary surrounding whitespace and line wrapping, so the
// armor body is normalised before decoding.
func DecodePublicKey(data string) (*rsa.PublicKey, error) {
	block, err := decodePEM(data)
	if err != nil {
		return nil, err
	}

	switch block.Type {
	case pemPKCS1Public:
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKey, err)
		}
		return key, nil
	case pemPKIXPublic:
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKey, err)
		}
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA public key: %T", ErrKey, parsed)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrKey, block.Type)
	}
}

func decodePEM(data string) (*pem.Block, error) {
	block, _ := pem.Decode([]byte(normalizePEM(data)))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrKey)
	}
	return block, nil
}

// normalizePEM rewraps the base64 body of a single PEM block so that
// encoding/pem accepts keys with unusual line lengths or stray spaces.
func normalizePEM(data string) string {
	data = strings.TrimSpace(data)

	begin := strings.Index(data, "-----BEGIN ")
	if begin < 0 {
		return data
	}
	headerEnd := strings.Index(data[begin+len("-----BEGIN "):], "-----")
	if headerEnd < 0 {
		return data
	}
	headerEnd += begin + len("-----BEGIN ") + len("-----")

	footer := strings.Index(data[headerEnd:], "-----END ")
	if footer < 0 {
		return data
	}
	footer += headerEnd

	header := data[begin:headerEnd]
	trailer := strings.TrimSpace(data[footer:])
	body := strings.Join(strings.Fields(data[headerEnd:footer]), "")

	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	for len(body) > 64 {
		b.WriteString(body[:64])
		b.WriteByte('\n')
		body = body[64:]
	}
	if body != "" {
		b.WriteString(body)
		b.WriteByte('\n')
	}
	b.WriteString(trailer)
	b.WriteByte('\n')

	return b.String()
}

// SignSHA256 produces an RSASSA-PKCS1-v1_5 signature over sha256(message).
func SignSHA256(key *rsa.PrivateKey, message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	return sig, nil
}

func VerifySHA256(key *rsa.PublicKey, message, signature []byte) bool {
	digest := sha256.Sum256(message)
	return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], signature) == nil
}
