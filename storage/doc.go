// Package storage provides pluggable persistence for sealed key records.
//
// Every backend implements interfaces.StorageBackend: a flat namespace of
// named records that can be fetched, stored, deleted and listed. The key
// store owns the record format and seals private key material before it
// reaches a backend, so backends only move opaque bytes.
//
//   - FileBackend writes one file per record for local deployments and tests
//   - S3Backend stores records as private objects in an S3-compatible bucket
//   - VaultBackend stores records in a HashiCorp Vault KV v2 mount
//   - RedisBackend keeps all records as fields of a single Redis hash
//
// # Storage URI Format
//
// Backends are selected with a location URI:
//
//	file:///var/lib/ondc/keys
//	s3://bucket-name/prefix?region=ap-south-1
//	vault://vault.example.com:8200/secret/ondc/keys
//	redis://localhost:6379/0?hash=ondc:keys
//
// Record names may contain characters that are unsafe in file names or
// object keys; the file, S3 and Vault backends store them base64url-encoded.
//
// # Usage
//
//	factory := storage.NewStorageBackendFactory(logger)
//	location, err := interfaces.NewStorageBackendLocation("file:///var/lib/ondc/keys")
//	backend, err := factory.StorageBackendFor(ctx, location)
package storage
