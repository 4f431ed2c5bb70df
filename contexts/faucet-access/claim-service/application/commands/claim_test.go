package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tapgate/contexts/faucet-access/claim-service/application/validators"
	"tapgate/contexts/faucet-access/claim-service/domain/entities"
	domainerrors "tapgate/contexts/faucet-access/claim-service/domain/errors"
)

type recordingLedger struct {
	records []entities.ClaimRecord
	err     error
}

func (l *recordingLedger) Insert(_ context.Context, record entities.ClaimRecord) error {
	if l.err != nil {
		return l.err
	}
	l.records = append(l.records, record)
	return nil
}

func (l *recordingLedger) HasClaim(_ context.Context, _ string, _ string) (bool, error) {
	return false, nil
}

func (l *recordingLedger) RecentClaims(_ context.Context, _ string, _ string, _ time.Time) ([]entities.ClaimRecord, error) {
	return nil, nil
}

func (l *recordingLedger) Stats(_ context.Context) (entities.LedgerStats, error) {
	return entities.LedgerStats{}, nil
}

type recordingFaucet struct {
	calls      int
	lastAPIKey string
	lastSubmit entities.ClaimSubmission
	grant      entities.ClaimGrant
	err        error
}

func (f *recordingFaucet) SubmitClaim(_ context.Context, apiKey string, submission entities.ClaimSubmission) (entities.ClaimGrant, error) {
	f.calls++
	f.lastAPIKey = apiKey
	f.lastSubmit = submission
	if f.err != nil {
		return entities.ClaimGrant{}, f.err
	}
	return f.grant, nil
}

type stubTransfer struct {
	calls  int
	txHash string
	err    error
}

func (t *stubTransfer) Transfer(_ context.Context, _ string) (string, error) {
	t.calls++
	if t.err != nil {
		return "", t.err
	}
	return t.txHash, nil
}

type stubValidator struct {
	name  string
	patch entities.Patch
	err   error
	calls int
}

func (v *stubValidator) Name() string { return v.name }

func (v *stubValidator) Validate(_ context.Context, _ entities.ClaimContext) (entities.Patch, error) {
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	return v.patch, nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type sequenceIDs struct {
	next int
}

func (g *sequenceIDs) NewID(_ context.Context) (string, error) {
	g.next++
	return "id-" + string(rune('0'+g.next)), nil
}

const testWallet = "0x00000000000000000000000000000000000000aa"

func testDistributor(t *testing.T, ledger *recordingLedger, faucet *recordingFaucet, chain []validators.Validator, transfer *stubTransfer) *Distributor {
	t.Helper()
	dist := Distributor{
		ID:           "dist-1",
		Name:         "Test Faucet",
		Path:         "/faucet/test/claim",
		APIKey:       "partner-key",
		PayoutAmount: decimal.RequireFromString("0.05"),
		WalletMode:   entities.WalletModeDirect,
		Validators:   chain,
		Ledger:       ledger,
		Faucet:       faucet,
		Clock:        fixedClock{now: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)},
		IDGen:        &sequenceIDs{},
	}
	if transfer != nil {
		dist.Transfer = transfer
	}
	built, err := NewDistributor(dist)
	if err != nil {
		t.Fatalf("construct distributor: %v", err)
	}
	return built
}

func passingChain() []validators.Validator {
	return []validators.Validator{&stubValidator{
		name:  validators.TypeTimeWindow,
		patch: entities.Patch{entities.AttachmentValidatedWallet: testWallet},
	}}
}

func directInput() ClaimInput {
	return ClaimInput{
		WalletAddress: testWallet,
		VisitorID:     "visitor-1",
		ClientIP:      "203.0.113.9",
	}
}

func TestProcessClaimGrantsAndPersists(t *testing.T) {
	ledger := &recordingLedger{}
	faucet := &recordingFaucet{grant: entities.ClaimGrant{
		TransactionID: "tx-1",
		Amount:        decimal.RequireFromString("0.1"),
	}}
	dist := testDistributor(t, ledger, faucet, passingChain(), nil)

	result, err := dist.ProcessClaim(context.Background(), directInput())
	if err != nil {
		t.Fatalf("process claim: %v", err)
	}
	if result.TransactionID != "tx-1" {
		t.Fatalf("expected upstream tx id, got %q", result.TransactionID)
	}
	if !result.Amount.Equal(decimal.RequireFromString("0.1")) {
		t.Fatalf("expected upstream amount, got %s", result.Amount)
	}
	if faucet.calls != 1 {
		t.Fatalf("expected exactly one upstream submission, got %d", faucet.calls)
	}
	if faucet.lastAPIKey != "partner-key" {
		t.Fatalf("expected distributor api key, got %q", faucet.lastAPIKey)
	}
	if faucet.lastSubmit.Address != testWallet {
		t.Fatalf("expected normalized wallet submitted, got %q", faucet.lastSubmit.Address)
	}

	if len(ledger.records) != 1 {
		t.Fatalf("expected one ledger record, got %d", len(ledger.records))
	}
	record := ledger.records[0]
	if record.UpstreamTxID == nil || *record.UpstreamTxID != "tx-1" {
		t.Fatalf("expected upstream tx id persisted, got %v", record.UpstreamTxID)
	}
	if record.TransferTxID != nil {
		t.Fatalf("expected no transfer tx id, got %v", record.TransferTxID)
	}
	if record.EmbeddedWallet != testWallet || record.ExternalWallet != testWallet {
		t.Fatalf("expected wallet fallback to canonical address, got %q / %q",
			record.EmbeddedWallet, record.ExternalWallet)
	}
}

func TestProcessClaimShortCircuitsOnValidatorFailure(t *testing.T) {
	ledger := &recordingLedger{}
	faucet := &recordingFaucet{}
	failing := &stubValidator{name: validators.TypeTimeWindow, err: domainerrors.ErrRateLimited}
	skipped := &stubValidator{name: validators.TypeNFTOwnership}
	dist := testDistributor(t, ledger, faucet, []validators.Validator{failing, skipped}, nil)

	_, err := dist.ProcessClaim(context.Background(), directInput())
	if !errors.Is(err, domainerrors.ErrRateLimited) {
		t.Fatalf("expected validator error to surface, got %v", err)
	}
	if skipped.calls != 0 {
		t.Fatalf("expected later validators skipped, got %d calls", skipped.calls)
	}
	if faucet.calls != 0 {
		t.Fatalf("expected no upstream submission, got %d", faucet.calls)
	}
	if len(ledger.records) != 0 {
		t.Fatalf("expected nothing persisted, got %d records", len(ledger.records))
	}
}

func TestProcessClaimTransferFailureIsNotFatal(t *testing.T) {
	ledger := &recordingLedger{}
	faucet := &recordingFaucet{grant: entities.ClaimGrant{TransactionID: "tx-1"}}
	transfer := &stubTransfer{err: errors.New("rpc timeout")}
	dist := testDistributor(t, ledger, faucet, passingChain(), transfer)

	result, err := dist.ProcessClaim(context.Background(), directInput())
	if err != nil {
		t.Fatalf("expected claim to succeed despite transfer failure, got %v", err)
	}
	if result.TransactionID != "tx-1" {
		t.Fatalf("expected upstream tx id, got %q", result.TransactionID)
	}
	if result.TransferTxID != "" {
		t.Fatalf("expected empty transfer tx id, got %q", result.TransferTxID)
	}
	if len(ledger.records) != 1 {
		t.Fatalf("expected record persisted, got %d", len(ledger.records))
	}
	if ledger.records[0].TransferTxID != nil {
		t.Fatalf("expected nil transfer tx id persisted, got %v", ledger.records[0].TransferTxID)
	}
}

func TestProcessClaimTransferSuccessRecordsHash(t *testing.T) {
	ledger := &recordingLedger{}
	faucet := &recordingFaucet{grant: entities.ClaimGrant{TransactionID: "tx-1"}}
	transfer := &stubTransfer{txHash: "0xtransfer"}
	dist := testDistributor(t, ledger, faucet, passingChain(), transfer)

	result, err := dist.ProcessClaim(context.Background(), directInput())
	if err != nil {
		t.Fatalf("process claim: %v", err)
	}
	if result.TransferTxID != "0xtransfer" {
		t.Fatalf("expected transfer tx id in result, got %q", result.TransferTxID)
	}
	if ledger.records[0].TransferTxID == nil || *ledger.records[0].TransferTxID != "0xtransfer" {
		t.Fatalf("expected transfer tx id persisted, got %v", ledger.records[0].TransferTxID)
	}
}

func TestProcessClaimFallsBackToConfiguredAmount(t *testing.T) {
	ledger := &recordingLedger{}
	faucet := &recordingFaucet{grant: entities.ClaimGrant{TransactionID: "tx-1"}}
	dist := testDistributor(t, ledger, faucet, passingChain(), nil)

	result, err := dist.ProcessClaim(context.Background(), directInput())
	if err != nil {
		t.Fatalf("process claim: %v", err)
	}
	if !result.Amount.Equal(decimal.RequireFromString("0.05")) {
		t.Fatalf("expected configured payout amount, got %s", result.Amount)
	}
}

func TestProcessClaimRejectsUpstreamFailure(t *testing.T) {
	ledger := &recordingLedger{}
	faucet := &recordingFaucet{err: domainerrors.ErrTapClosed}
	dist := testDistributor(t, ledger, faucet, passingChain(), nil)

	_, err := dist.ProcessClaim(context.Background(), directInput())
	if !errors.Is(err, domainerrors.ErrTapClosed) {
		t.Fatalf("expected tap-closed error to surface, got %v", err)
	}
	if len(ledger.records) != 0 {
		t.Fatalf("expected no record for failed upstream claim, got %d", len(ledger.records))
	}
}

func TestResolveContextDirectMode(t *testing.T) {
	dist := testDistributor(t, &recordingLedger{}, &recordingFaucet{}, passingChain(), nil)

	if _, err := dist.resolveContext(ClaimInput{VisitorID: "visitor-1"}); !errors.Is(err, domainerrors.ErrWalletRequired) {
		t.Fatalf("expected wallet-required rejection, got %v", err)
	}
	if _, err := dist.resolveContext(ClaimInput{VisitorID: "visitor-1", WalletAddress: "not-an-address"}); !errors.Is(err, domainerrors.ErrInvalidWalletAddress) {
		t.Fatalf("expected invalid-address rejection, got %v", err)
	}
	if _, err := dist.resolveContext(ClaimInput{WalletAddress: testWallet}); !errors.Is(err, domainerrors.ErrVisitorRequired) {
		t.Fatalf("expected visitor-required rejection, got %v", err)
	}

	claim, err := dist.resolveContext(ClaimInput{
		VisitorID:     "visitor-1",
		WalletAddress: "0x00000000000000000000000000000000000000AA",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if claim.WalletAddress != testWallet {
		t.Fatalf("expected lowercased wallet, got %q", claim.WalletAddress)
	}
}

func TestResolveContextIdentityTokenMode(t *testing.T) {
	dist := testDistributor(t, &recordingLedger{}, &recordingFaucet{}, passingChain(), nil)
	dist.WalletMode = entities.WalletModeIdentityToken

	if _, err := dist.resolveContext(ClaimInput{VisitorID: "visitor-1"}); !errors.Is(err, domainerrors.ErrTokenRequired) {
		t.Fatalf("expected token-required rejection, got %v", err)
	}

	claim, err := dist.resolveContext(ClaimInput{
		VisitorID:     "visitor-1",
		IdentityToken: "token-1",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if claim.IdentityToken != "token-1" {
		t.Fatalf("expected identity token carried, got %q", claim.IdentityToken)
	}
}

func TestNewDistributorMarksOnceOnlyRecordsExclusive(t *testing.T) {
	ledger := &recordingLedger{}
	faucet := &recordingFaucet{grant: entities.ClaimGrant{TransactionID: "tx-1"}}
	chain := []validators.Validator{&stubValidator{
		name:  validators.TypeOnceOnly,
		patch: entities.Patch{entities.AttachmentValidatedWallet: testWallet},
	}}
	dist := testDistributor(t, ledger, faucet, chain, nil)

	if _, err := dist.ProcessClaim(context.Background(), directInput()); err != nil {
		t.Fatalf("process claim: %v", err)
	}
	if !ledger.records[0].Exclusive {
		t.Fatalf("expected once-only chains to persist exclusive records")
	}
}

func TestNewDistributorRejectsBrokenWiring(t *testing.T) {
	base := Distributor{
		ID:         "dist-1",
		APIKey:     "key",
		WalletMode: entities.WalletModeDirect,
		Validators: passingChain(),
		Ledger:     &recordingLedger{},
		Faucet:     &recordingFaucet{},
		Clock:      fixedClock{},
		IDGen:      &sequenceIDs{},
	}

	broken := base
	broken.Validators = nil
	if _, err := NewDistributor(broken); !errors.Is(err, domainerrors.ErrInvalidDistributorConfig) {
		t.Fatalf("expected empty chain rejection, got %v", err)
	}

	broken = base
	broken.WalletMode = "hybrid"
	if _, err := NewDistributor(broken); !errors.Is(err, domainerrors.ErrInvalidDistributorConfig) {
		t.Fatalf("expected wallet mode rejection, got %v", err)
	}

	broken = base
	broken.APIKey = " "
	if _, err := NewDistributor(broken); !errors.Is(err, domainerrors.ErrInvalidDistributorConfig) {
		t.Fatalf("expected missing api key rejection, got %v", err)
	}
}
