// Package main (cmd/httpserver) runs the ONDC onboarding server.
//
// The server issues signing and encryption key pairs for subscribers, builds
// the ondc-site-verification page, submits subscription requests to the
// registry and answers the registry's on_subscribe challenges on the
// callback endpoint.
//
// Keys live in memory unless one or more --storage URIs are given, in which
// case every record is sealed with a key derived from --kms-seed and written
// to all backends. Each registry environment has its own base URL and
// encryption key flag, defaulting to the public ONDC deployments.
//
// Example usage:
//
//	onboarding-server \
//	  --listen-addr 0.0.0.0:3000 \
//	  --subscriber-id tsp-seller.ondc.docboyz.in \
//	  --storage file:///var/lib/ondc/keys \
//	  --storage redis://redis:6379/0?hash=ondc:keys \
//	  --kms-seed $(openssl rand -hex 32) \
//	  --dns-check \
//	  --log-json
//
// The server shuts down gracefully on SIGINT or SIGTERM, first marking
// itself not ready for --drain-seconds.
package main
