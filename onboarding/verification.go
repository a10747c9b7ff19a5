package onboarding

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/ondc-onboarding-service/cryptoutils"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"go.uber.org/atomic"
)

// VerificationFileName is the path the registry fetches from the subscriber's domain.
const VerificationFileName = "ondc-site-verification.html"

// The signature is checked to be base64 before rendering, so no escaping is
// applied; html/template would entity-encode '+' and break naive scrapers.
var verificationTemplate = template.Must(template.New(VerificationFileName).Parse(`<!--Contents of ondc-site-verification.html. -->
<!--Please replace SIGNED_UNIQUE_REQ_ID with an actual value-->
<html>
    <head>
        <meta name='ondc-site-verification' content='{{.SignedUniqueRequestID}}' />
    </head>
    <body>
        ONDC Site Verification Page
    </body>
</html>
`))

// VerificationBuilder signs fresh request ids with a subscriber's key and
// renders the site verification file.
type VerificationBuilder struct {
	keys KeyStore
	now  func() time.Time
	log  *slog.Logger

	lastHTML atomic.String
}

// NewVerificationBuilder creates a builder signing with keys from store.
func NewVerificationBuilder(store KeyStore, log *slog.Logger) *VerificationBuilder {
	return &VerificationBuilder{keys: store, now: time.Now, log: log}
}

// Build signs a new unique request id with the subscriber's key. Artifacts
// are never cached: every call yields a new request id.
func (b *VerificationBuilder) Build(ctx context.Context, subscriberID, keyID string) (*interfaces.VerificationArtifact, error) {
	kp, err := b.keys.Get(ctx, subscriberID, keyID)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	info := kp.Info()
	artifact := &interfaces.VerificationArtifact{
		SubscriberID:          info.SubscriberID,
		UniqueKeyID:           info.UniqueKeyID,
		RequestID:             requestID,
		SignedUniqueRequestID: cryptoutils.SignMessage(kp, []byte(requestID)),
		SigningPublicKey:      info.SigningPublicKey,
		EncryptionPublicKey:   info.EncryptionPublicKey,
		ValidFrom:             info.ValidFrom,
		ValidUntil:            info.ValidUntil,
	}

	html, err := RenderHTML(artifact)
	if err != nil {
		return nil, err
	}
	b.lastHTML.Store(html)

	b.log.Info("Built verification artifact",
		slog.String("subscriberId", subscriberID),
		slog.String("uniqueKeyId", keyID),
		slog.String("requestId", requestID))
	return artifact, nil
}

// LastHTML returns the verification file of the most recent Build.
func (b *VerificationBuilder) LastHTML() (string, bool) {
	html := b.lastHTML.Load()
	return html, html != ""
}

// RenderHTML renders the ondc-site-verification.html document for artifact.
func RenderHTML(artifact *interfaces.VerificationArtifact) (string, error) {
	if _, err := base64.StdEncoding.DecodeString(artifact.SignedUniqueRequestID); err != nil || artifact.SignedUniqueRequestID == "" {
		return "", fmt.Errorf("%w: signed request id is not base64", interfaces.ErrValidation)
	}

	var buf bytes.Buffer
	if err := verificationTemplate.Execute(&buf, artifact); err != nil {
		return "", err
	}
	return buf.String(), nil
}
