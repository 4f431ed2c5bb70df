package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const defaultCallTimeout = 15 * time.Second

const erc1155BalanceABI = `[{
	"constant": true,
	"inputs": [
		{"name": "account", "type": "address"},
		{"name": "id", "type": "uint256"}
	],
	"name": "balanceOf",
	"outputs": [{"name": "", "type": "uint256"}],
	"stateMutability": "view",
	"type": "function"
}]`

// NFTReader reads ERC-1155 balances over a JSON-RPC endpoint.
type NFTReader struct {
	client      *ethclient.Client
	balanceABI  abi.ABI
	callTimeout time.Duration
}

func NewNFTReader(rpcURL string) (*NFTReader, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("evm: dial %s: %w", rpcURL, err)
	}
	parsed, err := abi.JSON(strings.NewReader(erc1155BalanceABI))
	if err != nil {
		return nil, fmt.Errorf("evm: parse balance abi: %w", err)
	}
	return &NFTReader{
		client:      client,
		balanceABI:  parsed,
		callTimeout: defaultCallTimeout,
	}, nil
}

// BalanceOf returns the wallet's balance of the given token id at the latest
// block.
func (r *NFTReader) BalanceOf(ctx context.Context, contract string, wallet string, tokenID *big.Int) (*big.Int, error) {
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("evm: %q is not a contract address", contract)
	}
	if !common.IsHexAddress(wallet) {
		return nil, fmt.Errorf("evm: %q is not a wallet address", wallet)
	}

	input, err := r.balanceABI.Pack("balanceOf", common.HexToAddress(wallet), tokenID)
	if err != nil {
		return nil, fmt.Errorf("evm: pack balanceOf: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	target := common.HexToAddress(contract)
	output, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &target, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("evm: call balanceOf: %w", err)
	}

	results, err := r.balanceABI.Unpack("balanceOf", output)
	if err != nil {
		return nil, fmt.Errorf("evm: unpack balanceOf: %w", err)
	}
	balance, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("evm: balanceOf returned %T, expected *big.Int", results[0])
	}
	return balance, nil
}

func (r *NFTReader) Close() {
	r.client.Close()
}
