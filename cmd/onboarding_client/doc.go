// Package main (cmd/onboarding_client) is a command line client for the
// onboarding server.
//
// Typical onboarding of a new subscriber:
//
//	onboarding-client generate-keys --subscriber-id tsp-seller.ondc.docboyz.in
//	onboarding-client verify --subscriber-id tsp-seller.ondc.docboyz.in --out ondc-site-verification.html
//	onboarding-client subscribe request.json
//	onboarding-client vlookup --env staging --domain ONDC:RET10 --city std:080
//
// Responses are printed as indented JSON.
package main
