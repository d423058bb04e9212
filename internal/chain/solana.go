package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"

	"meme-trading-bot/internal/types"
)

// feeRate is the flat simulated swap fee, roughly what an aggregator
// quotes for a small-cap pair.
const feeRate = 0.003

// Client wraps the Solana wallet and a simulated swap path. Dry-run
// execution never touches the network; the wallet still exists so the
// identity survives restarts.
type Client struct {
	key solana.PrivateKey
	log *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewClient loads the wallet at keyPath, generating and persisting a
// fresh one when the file does not exist.
func NewClient(keyPath string, seed int64, log *slog.Logger) (*Client, error) {
	key, err := loadWallet(keyPath)
	if os.IsNotExist(err) {
		key, err = generateWallet(keyPath)
	}
	if err != nil {
		return nil, fmt.Errorf("wallet init: %w", err)
	}
	log.Info("wallet ready", "public_key", key.PublicKey().String())
	return &Client{
		key: key,
		log: log,
		rng: rand.New(rand.NewSource(seed)),
	}, nil
}

// PublicKey returns the wallet's public key.
func (c *Client) PublicKey() solana.PublicKey {
	return c.key.PublicKey()
}

// SimulateSwap pretends to submit a swap and returns a signature that
// looks like a real one. The notional is signal quantity times price.
func (c *Client) SimulateSwap(ctx context.Context, signal types.TradingSignal) (solana.Signature, error) {
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}

	var raw [64]byte
	c.mu.Lock()
	c.rng.Read(raw[:])
	c.mu.Unlock()

	sig := solana.SignatureFromBytes(raw[:])
	c.log.Debug("simulated swap",
		"symbol", signal.Symbol,
		"action", string(signal.Action),
		"notional", signal.Quantity*signal.Price,
		"signature", sig.String())
	return sig, nil
}

// QuoteFee returns the simulated fee for a swap of the given notional.
func (c *Client) QuoteFee(notional float64) float64 {
	if notional <= 0 {
		return 0
	}
	return notional * feeRate
}

func loadWallet(path string) (solana.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	keyStr := strings.Trim(strings.TrimSpace(string(data)), "\"")
	key, err := solana.PrivateKeyFromBase58(keyStr)
	if err != nil {
		return nil, fmt.Errorf("parse key %s: %w", path, err)
	}
	return key, nil
}

func generateWallet(path string) (solana.PrivateKey, error) {
	key := solana.NewWallet().PrivateKey
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("persist key %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(key.String()), 0600); err != nil {
		return nil, fmt.Errorf("persist key %s: %w", path, err)
	}
	return key, nil
}
