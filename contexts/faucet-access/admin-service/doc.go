// Package adminservice implements the operator surface of the faucet gateway
// inside the faucet-access context.
//
// The module exposes the configured distributor inventory, ledger statistics,
// and the management endpoints of the upstream faucet: drip-rule reads and
// destructive synchronization, claim-code issuance, and transaction status
// lookups.
package adminservice
