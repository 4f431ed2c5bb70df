package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

const erc20ABI = `[
	{
		"constant": true,
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint8"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

const defaultTransferTimeout = 2 * time.Minute

// ERC20TransferConfig describes one secondary payout lane.
type ERC20TransferConfig struct {
	RPCURL        string
	TokenAddress  string
	PrivateKeyHex string
	Amount        decimal.Decimal
	// ChainID may be zero; the chain is then asked once and cached.
	ChainID int64
}

// ERC20Transferer sends a fixed ERC-20 amount from a funded hot wallet and
// waits for one confirmation.
type ERC20Transferer struct {
	client   *ethclient.Client
	tokenABI abi.ABI
	token    common.Address
	key      *ecdsa.PrivateKey
	sender   common.Address
	amount   decimal.Decimal
	timeout  time.Duration

	mu       sync.Mutex
	chainID  *big.Int
	decimals *uint8
}

func NewERC20Transferer(cfg ERC20TransferConfig) (*ERC20Transferer, error) {
	if !common.IsHexAddress(cfg.TokenAddress) {
		return nil, fmt.Errorf("evm: token address %q is invalid", cfg.TokenAddress)
	}
	if cfg.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("evm: transfer amount must be positive, got %s", cfg.Amount)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("evm: parse signer key: %w", err)
	}

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("evm: dial %s: %w", cfg.RPCURL, err)
	}
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("evm: parse erc20 abi: %w", err)
	}

	t := &ERC20Transferer{
		client:   client,
		tokenABI: parsed,
		token:    common.HexToAddress(cfg.TokenAddress),
		key:      key,
		sender:   crypto.PubkeyToAddress(key.PublicKey),
		amount:   cfg.Amount,
		timeout:  defaultTransferTimeout,
	}
	if cfg.ChainID > 0 {
		t.chainID = big.NewInt(cfg.ChainID)
	}
	return t, nil
}

// Transfer sends the configured amount to recipient and returns the tx hash
// once the transaction has been mined with a successful receipt.
func (t *ERC20Transferer) Transfer(ctx context.Context, recipient string) (string, error) {
	if !common.IsHexAddress(recipient) {
		return "", fmt.Errorf("evm: recipient %q is invalid", recipient)
	}
	to := common.HexToAddress(recipient)

	// One deadline covers submission and the confirmation wait.
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	decimals, err := t.tokenDecimals(ctx)
	if err != nil {
		return "", err
	}
	units := t.amount.Shift(int32(decimals))
	if !units.IsInteger() {
		return "", fmt.Errorf("evm: amount %s does not fit %d token decimals", t.amount, decimals)
	}

	input, err := t.tokenABI.Pack("transfer", to, units.BigInt())
	if err != nil {
		return "", fmt.Errorf("evm: pack transfer: %w", err)
	}

	nonce, err := t.client.PendingNonceAt(ctx, t.sender)
	if err != nil {
		return "", fmt.Errorf("evm: pending nonce: %w", err)
	}
	gasPrice, err := t.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("evm: gas price: %w", err)
	}
	gasLimit, err := t.client.EstimateGas(ctx, ethereum.CallMsg{
		From: t.sender,
		To:   &t.token,
		Data: input,
	})
	if err != nil {
		return "", fmt.Errorf("evm: estimate gas: %w", err)
	}

	chainID, err := t.resolveChainID(ctx)
	if err != nil {
		return "", err
	}

	tx := types.NewTransaction(nonce, t.token, big.NewInt(0), gasLimit, gasPrice, input)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), t.key)
	if err != nil {
		return "", fmt.Errorf("evm: sign transfer: %w", err)
	}
	if err := t.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("evm: send transfer: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, t.client, signed)
	if err != nil {
		return "", fmt.Errorf("evm: wait for transfer %s: %w", signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("evm: transfer %s reverted", signed.Hash().Hex())
	}
	return signed.Hash().Hex(), nil
}

func (t *ERC20Transferer) tokenDecimals(ctx context.Context) (uint8, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.decimals != nil {
		return *t.decimals, nil
	}

	input, err := t.tokenABI.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("evm: pack decimals: %w", err)
	}
	output, err := t.client.CallContract(ctx, ethereum.CallMsg{To: &t.token, Data: input}, nil)
	if err != nil {
		return 0, fmt.Errorf("evm: read token decimals: %w", err)
	}
	results, err := t.tokenABI.Unpack("decimals", output)
	if err != nil {
		return 0, fmt.Errorf("evm: unpack decimals: %w", err)
	}
	decimals, ok := results[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("evm: decimals returned %T, expected uint8", results[0])
	}
	t.decimals = &decimals
	return decimals, nil
}

func (t *ERC20Transferer) resolveChainID(ctx context.Context) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.chainID != nil {
		return t.chainID, nil
	}
	chainID, err := t.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("evm: resolve chain id: %w", err)
	}
	t.chainID = chainID
	return chainID, nil
}

func (t *ERC20Transferer) Close() {
	t.client.Close()
}
