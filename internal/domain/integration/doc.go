// Package integration contains the catalog integration bounded context.
// It describes how ERP items are published to a remote e-commerce catalog.
//
// Key concepts:
//   - Item: the ERP record being published, owned by the host ERP
//   - SyncLogEntry / SyncLedger: append-only record of sync attempts
//   - SyncSettings: the singleton configuration for the remote catalog
//   - RemoteCatalog: port for the remote catalog API
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
