// Package claimservice implements the faucet claim gateway inside the
// faucet-access context.
//
// The module owns the claim lifecycle for every configured distributor: it
// resolves the claimant wallet, runs the distributor's ordered validator
// chain, forwards approved claims to the upstream faucet, optionally pays a
// secondary ERC-20 amount, and appends granted claims to the ledger. Business
// rules live in the application and domain layers; infrastructure sits behind
// ports and adapters.
package claimservice
