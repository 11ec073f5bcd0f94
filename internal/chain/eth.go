package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/paytos/paytos/internal/asset"
	"github.com/paytos/paytos/internal/custody"
)

const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

const (
	nativeTransferGas = 21000
	gasMultiplier     = 1.2
	fallbackTipWei    = 2_000_000_000
)

// Options tune the Ethereum gateway.
type Options struct {
	// TokenAddresses maps ERC-20 symbols to contract addresses.
	TokenAddresses map[asset.Symbol]string
	// TokenDecimals overrides base-unit precision per token.
	TokenDecimals map[asset.Symbol]int32
	// ReceiptTimeout bounds the wait for a transfer receipt.
	ReceiptTimeout time.Duration
	// PollInterval is the receipt polling cadence.
	PollInterval time.Duration
}

// EthGateway implements Gateway over a JSON-RPC Ethereum client.
type EthGateway struct {
	client         *ethclient.Client
	chainID        *big.Int
	erc20          abi.ABI
	tokens         map[asset.Symbol]common.Address
	decimals       map[asset.Symbol]int32
	receiptTimeout time.Duration
	pollInterval   time.Duration
}

// Dial connects to the RPC endpoint and verifies the chain id.
func Dial(ctx context.Context, rpcURL string, chainID int64, opts Options) (*EthGateway, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	remote, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	if remote.Int64() != chainID {
		client.Close()
		return nil, fmt.Errorf("chain id mismatch: endpoint reports %d, configured %d", remote.Int64(), chainID)
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	g := &EthGateway{
		client:         client,
		chainID:        remote,
		erc20:          parsed,
		tokens:         make(map[asset.Symbol]common.Address),
		decimals:       make(map[asset.Symbol]int32),
		receiptTimeout: opts.ReceiptTimeout,
		pollInterval:   opts.PollInterval,
	}
	for sym, addr := range opts.TokenAddresses {
		if !common.IsHexAddress(addr) {
			client.Close()
			return nil, fmt.Errorf("invalid contract address for %s: %q", sym, addr)
		}
		g.tokens[sym] = common.HexToAddress(addr)
	}
	for sym, d := range opts.TokenDecimals {
		g.decimals[sym] = d
	}
	if g.receiptTimeout <= 0 {
		g.receiptTimeout = 2 * time.Minute
	}
	if g.pollInterval <= 0 {
		g.pollInterval = 2 * time.Second
	}
	return g, nil
}

// Close releases the underlying RPC connection.
func (g *EthGateway) Close() {
	g.client.Close()
}

// NativeBalance returns the ETH balance of the address.
func (g *EthGateway) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	wei, err := g.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("query native balance: %w", err)
	}
	return decimal.NewFromBigInt(wei, -asset.ETH.Decimals()), nil
}

// AssetBalance returns the token balance of the address.
func (g *EthGateway) AssetBalance(ctx context.Context, address string, sym asset.Symbol) (decimal.Decimal, error) {
	if sym.Native() {
		return g.NativeBalance(ctx, address)
	}
	token, ok := g.tokens[sym]
	if !ok {
		return decimal.Zero, fmt.Errorf("no contract configured for %s", sym)
	}
	data, err := g.erc20.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return decimal.Zero, fmt.Errorf("pack balanceOf: %w", err)
	}
	out, err := g.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("query %s balance: %w", sym, err)
	}
	results, err := g.erc20.Unpack("balanceOf", out)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unpack balanceOf: %w", err)
	}
	raw, ok := results[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected balanceOf result type %T", results[0])
	}
	return decimal.NewFromBigInt(raw, -g.tokenDecimals(sym)), nil
}

// TransferNative sends ETH and waits for the receipt.
func (g *EthGateway) TransferNative(ctx context.Context, signer *custody.Signer, to string, amount decimal.Decimal) (string, error) {
	value := amount.Shift(asset.ETH.Decimals()).BigInt()
	target := common.HexToAddress(to)
	return g.submit(ctx, signer, target, value, nil, nativeTransferGas)
}

// TransferAsset sends an ERC-20 token and waits for the receipt.
func (g *EthGateway) TransferAsset(ctx context.Context, signer *custody.Signer, to string, amount decimal.Decimal, sym asset.Symbol) (string, error) {
	token, ok := g.tokens[sym]
	if !ok {
		return "", fmt.Errorf("no contract configured for %s", sym)
	}
	value := amount.Shift(g.tokenDecimals(sym)).BigInt()
	data, err := g.erc20.Pack("transfer", common.HexToAddress(to), value)
	if err != nil {
		return "", fmt.Errorf("pack transfer: %w", err)
	}
	gasLimit, err := g.client.EstimateGas(ctx, ethereum.CallMsg{
		From: signer.Address(),
		To:   &token,
		Data: data,
	})
	if err != nil {
		return "", fmt.Errorf("estimate gas: %w", err)
	}
	gasLimit = uint64(float64(gasLimit) * gasMultiplier)
	return g.submit(ctx, signer, token, big.NewInt(0), data, gasLimit)
}

func (g *EthGateway) submit(ctx context.Context, signer *custody.Signer, to common.Address, value *big.Int, data []byte, gasLimit uint64) (string, error) {
	nonce, err := g.client.PendingNonceAt(ctx, signer.Address())
	if err != nil {
		return "", fmt.Errorf("fetch nonce: %w", err)
	}
	tipCap, err := g.client.SuggestGasTipCap(ctx)
	if err != nil {
		tipCap = big.NewInt(fallbackTipWei)
	}
	header, err := g.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("fetch latest header: %w", err)
	}
	baseFee := header.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(1_000_000_000)
	}
	feeCap := new(big.Int).Mul(baseFee, big.NewInt(2))
	feeCap.Add(feeCap, tipCap)

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   g.chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &to,
		Value:     value,
		Data:      data,
	})
	signed, err := signer.SignTx(g.chainID, tx)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	if err := g.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("broadcast transaction: %w", err)
	}
	return g.waitReceipt(ctx, signed.Hash())
}

func (g *EthGateway) waitReceipt(ctx context.Context, hash common.Hash) (string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, g.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()
	// Transient polling failures are retried until the deadline.
	for {
		receipt, err := g.client.TransactionReceipt(waitCtx, hash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				return hash.Hex(), nil
			}
			return "", ErrReverted
		}
		select {
		case <-waitCtx.Done():
			return "", fmt.Errorf("%w after %s", ErrReceiptTimeout, g.receiptTimeout)
		case <-ticker.C:
		}
	}
}

func (g *EthGateway) tokenDecimals(sym asset.Symbol) int32 {
	if d, ok := g.decimals[sym]; ok {
		return d
	}
	return sym.Decimals()
}
