package cryptoutils

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// SignatureAlgorithm is the only algorithm the registry accepts for request signatures.
const SignatureAlgorithm = "ed25519"

// signedHeaders is the fixed header list covered by a registry request signature.
const signedHeaders = "(created) (expires) digest"

var (
	// ErrInvalidSignature is returned when a signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrMalformedAuthorization is returned for unparseable authorization headers.
	ErrMalformedAuthorization = errors.New("malformed authorization header")
)

// Signer produces raw Ed25519 signatures without exposing the private key.
type Signer interface {
	Sign(message []byte) []byte
}

// SignMessage signs message and returns the base64 signature.
func SignMessage(signer Signer, message []byte) string {
	return base64.StdEncoding.EncodeToString(signer.Sign(message))
}

// VerifyMessage checks a base64 Ed25519 signature over message.
func VerifyMessage(pub ed25519.PublicKey, message []byte, signatureB64 string) error {
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(sig) != ed25519.SignatureSize || !ed25519.Verify(pub, message, sig) {
		return ErrInvalidSignature
	}
	return nil
}

// Digest returns the BLAKE2b-512 digest of body in base64, the digest the
// registry recomputes over the received bytes.
func Digest(body []byte) string {
	sum := blake2b.Sum512(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// SigningString builds the string that is signed for a request body.
func SigningString(body []byte, created, expires int64) string {
	return fmt.Sprintf("(created): %d\n(expires): %d\ndigest: BLAKE-512=%s", created, expires, Digest(body))
}

// AuthorizationHeader is the registry's HTTP signature header.
type AuthorizationHeader struct {
	SubscriberID string
	UniqueKeyID  string
	Algorithm    string
	Created      int64
	Expires      int64
	Headers      string
	Signature    string
}

// NewAuthorizationHeader signs body on behalf of subscriberID/uniqueKeyID.
func NewAuthorizationHeader(subscriberID, uniqueKeyID string, body []byte, created time.Time, ttl time.Duration, signer Signer) AuthorizationHeader {
	c := created.Unix()
	e := created.Add(ttl).Unix()
	return AuthorizationHeader{
		SubscriberID: subscriberID,
		UniqueKeyID:  uniqueKeyID,
		Algorithm:    SignatureAlgorithm,
		Created:      c,
		Expires:      e,
		Headers:      signedHeaders,
		Signature:    SignMessage(signer, []byte(SigningString(body, c, e))),
	}
}

// String renders the header value.
func (h AuthorizationHeader) String() string {
	return fmt.Sprintf(`Signature keyId="%s|%s|%s",algorithm="%s",created="%d",expires="%d",headers="%s",signature="%s"`,
		h.SubscriberID, h.UniqueKeyID, h.Algorithm, h.Algorithm, h.Created, h.Expires, h.Headers, h.Signature)
}

var authParamRe = regexp.MustCompile(`([a-zA-Z]+)="([^"]*)"`)

// ParseAuthorizationHeader parses a header produced by AuthorizationHeader.String.
func ParseAuthorizationHeader(value string) (*AuthorizationHeader, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "Signature ") {
		return nil, fmt.Errorf("%w: missing Signature scheme", ErrMalformedAuthorization)
	}

	params := map[string]string{}
	for _, m := range authParamRe.FindAllStringSubmatch(value, -1) {
		params[m[1]] = m[2]
	}

	keyParts := strings.Split(params["keyId"], "|")
	if len(keyParts) != 3 {
		return nil, fmt.Errorf("%w: keyId must be subscriber|key|algorithm", ErrMalformedAuthorization)
	}

	created, err := strconv.ParseInt(params["created"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: created: %v", ErrMalformedAuthorization, err)
	}
	expires, err := strconv.ParseInt(params["expires"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: expires: %v", ErrMalformedAuthorization, err)
	}

	return &AuthorizationHeader{
		SubscriberID: keyParts[0],
		UniqueKeyID:  keyParts[1],
		Algorithm:    params["algorithm"],
		Created:      created,
		Expires:      expires,
		Headers:      params["headers"],
		Signature:    params["signature"],
	}, nil
}

// VerifyAuthorization checks that header carries a valid, unexpired signature
// over exactly body.
func VerifyAuthorization(header *AuthorizationHeader, body []byte, pub ed25519.PublicKey, now time.Time) error {
	if header.Algorithm != SignatureAlgorithm {
		return fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidSignature, header.Algorithm)
	}
	if now.Unix() > header.Expires {
		return fmt.Errorf("%w: signature expired", ErrInvalidSignature)
	}
	return VerifyMessage(pub, []byte(SigningString(body, header.Created, header.Expires)), header.Signature)
}
