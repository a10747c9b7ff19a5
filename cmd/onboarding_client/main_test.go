package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/ondc-onboarding-service/api"
	"github.com/ruteri/ondc-onboarding-service/api/clients"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testClient() (*Client, *clients.MockOnboardingProvider, *bytes.Buffer) {
	provider := &clients.MockOnboardingProvider{}
	out := &bytes.Buffer{}
	return &Client{Provider: provider, Out: out}, provider, out
}

func TestGenerateKeysPrintsResponse(t *testing.T) {
	c, provider, out := testClient()
	provider.On("GenerateKeys", mock.Anything, "example.com").Return(&api.GenerateKeysResponse{
		SubscriberID: "example.com",
		UniqueKeyID:  "key-1",
	}, nil)

	require.NoError(t, c.GenerateKeys(context.Background(), "example.com"))
	assert.Contains(t, out.String(), `"uniqueKeyId": "key-1"`)
	provider.AssertExpectations(t)
}

func TestVerifyWritesHTML(t *testing.T) {
	c, provider, _ := testClient()
	provider.On("GenerateVerification", mock.Anything, "example.com", "").Return(&api.GenerateVerificationResponse{
		HTML: "<html>signed</html>",
	}, nil)

	page := &bytes.Buffer{}
	require.NoError(t, c.Verify(context.Background(), "example.com", "", page))
	assert.Equal(t, "<html>signed</html>", page.String())
}

func TestErrorsAreWrapped(t *testing.T) {
	c, provider, out := testClient()
	apiErr := &clients.APIError{StatusCode: 502, Code: api.CodeRejected, Message: "nack"}
	provider.On("Subscribe", mock.Anything, mock.Anything).Return(nil, apiErr)

	err := c.Subscribe(context.Background(), interfaces.SubscriptionRequest{SubscriberID: "example.com"})
	require.Error(t, err)

	var target *clients.APIError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, api.CodeRejected, target.Code)
	assert.Empty(t, out.String())
}

func TestDeleteKey(t *testing.T) {
	c, provider, out := testClient()
	provider.On("DeleteKey", mock.Anything, "example.com", "key-1").Return(nil)

	require.NoError(t, c.DeleteKey(context.Background(), "example.com", "key-1"))
	assert.Equal(t, "deleted example.com/key-1\n", out.String())
}

func TestReadSubscription(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"subscriberId":"example.com","environment":"staging"}`), 0o600))

	req, err := readSubscription(path)
	require.NoError(t, err)
	assert.Equal(t, "example.com", req.SubscriberID)

	_, err = readSubscription("")
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))
	_, err = readSubscription(path)
	require.Error(t, err)
}
