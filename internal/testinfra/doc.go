// Package testinfra starts throwaway Postgres containers for integration tests.
//
// Files in this package carry the integration build tag:
//
//	go test -tags integration ./...
//
// Tests are skipped when Docker is unavailable.
package testinfra
