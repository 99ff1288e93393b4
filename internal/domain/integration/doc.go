// Package integration contains the ports through which the storefront feed
// enters the system.
//
// Key concepts:
//   - FeedSource: port interface for pulling a catalog and order snapshot
//   - FeedProduct / FeedOrder: raw feed records, not yet persisted
//   - FetchError: terminal failure of a snapshot fetch
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
