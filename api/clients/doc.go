/*
Package clients provides an HTTP client for the onboarding service API.

OnboardingClient unwraps the service's response envelope: successful calls
return the decoded data, failed calls an *APIError carrying the HTTP status
and error code.

# Example Usage

	client := clients.NewOnboardingClient("http://localhost:3000", 30*time.Second)

	keys, err := client.GenerateKeys(ctx, "tsp-seller.ondc.docboyz.in")
	if err != nil {
	    return err
	}

	verification, err := client.GenerateVerification(ctx, keys.SubscriberID, keys.UniqueKeyID)

MockOnboardingProvider mocks the client with testify for command tests.
*/
package clients
