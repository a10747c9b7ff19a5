/*
Package httpserver exposes the ONDC onboarding service over HTTP.

# Onboarding API

  - POST /ondc/generate-keys issues a signing and encryption key pair
  - POST /ondc/generate-verification signs a fresh request id and renders
    ondc-site-verification.html, served afterwards at /ondc-site-verification.html
  - POST /ondc/subscribe sends a signed subscription request to the registry
  - POST /ondc/callback/on_subscribe answers the registry's challenge; the
    X-Environment header selects the registry key
  - POST /ondc/lookup and /ondc/vlookup query the participant directory
  - GET /ondc/keys, GET and DELETE /ondc/keys/{subscriberId}/{uniqueKeyId}
    manage stored keys (public material only)

# Responses

Every JSON response is an envelope:

	{"success": true, "data": {...}, "message": "..."}
	{"success": false, "error": "...", "code": "VALIDATION_ERROR"}

Errors map onto statuses as follows: validation 400, unknown key 404,
duplicate key 409, undecryptable challenge 401, registry rejection 502,
registry timeout 504, unreachable registry 503.

# Operations

/livez, /readyz, /drain and /undrain support load balancer draining.
Metrics are served by a separate listener, pprof under /debug when enabled.
*/
package httpserver
