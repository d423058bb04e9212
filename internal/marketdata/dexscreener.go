package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"meme-trading-bot/internal/clock"
	"meme-trading-bot/internal/ta"
	"meme-trading-bot/internal/types"
)

const (
	dexScreenerSearchAPI = "https://api.dexscreener.com/latest/dex/search"
	solanaChainID        = "solana"
	apiTimeout           = 15 * time.Second
)

type dexScreenerResponse struct {
	Pairs []dexPair `json:"pairs"`
}

type dexPair struct {
	ChainID   string `json:"chainId"`
	BaseToken struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUsd string `json:"priceUsd"`
	Volume   struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	Liquidity struct {
		Usd float64 `json:"usd"`
	} `json:"liquidity"`
}

// DexScreener polls the DexScreener search API for live quotes. Each
// poll appends to a per-symbol price history so the same indicator
// math applies as in mock mode.
type DexScreener struct {
	baseURL string
	client  *http.Client
	clk     clock.Clock
	log     *slog.Logger

	mu      sync.Mutex
	symbols []string
	prices  map[string][]float64
}

func NewDexScreener(symbols []string, clk clock.Clock, log *slog.Logger) *DexScreener {
	return &DexScreener{
		baseURL: dexScreenerSearchAPI,
		client:  &http.Client{Timeout: apiTimeout},
		clk:     clk,
		log:     log,
		symbols: append([]string(nil), symbols...),
		prices:  make(map[string][]float64),
	}
}

// AddSymbol grows the universe at runtime.
func (d *DexScreener) AddSymbol(symbol string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.symbols {
		if s == symbol {
			return
		}
	}
	d.symbols = append(d.symbols, symbol)
}

// CurrentSamples fetches each enabled symbol. A symbol that fails is
// skipped and logged; the rest of the batch still returns.
func (d *DexScreener) CurrentSamples(ctx context.Context) ([]types.MarketSample, error) {
	d.mu.Lock()
	symbols := append([]string(nil), d.symbols...)
	d.mu.Unlock()

	samples := make([]types.MarketSample, 0, len(symbols))
	for _, symbol := range symbols {
		sample, err := d.Sample(ctx, symbol)
		if err != nil {
			d.log.Warn("quote fetch failed", "symbol", symbol, "error", err)
			continue
		}
		samples = append(samples, *sample)
	}
	return samples, nil
}

func (d *DexScreener) Sample(ctx context.Context, symbol string) (*types.MarketSample, error) {
	pair, err := d.bestPair(ctx, symbol)
	if err != nil {
		return nil, err
	}

	price, err := strconv.ParseFloat(pair.PriceUsd, 64)
	if err != nil || price <= 0 {
		return nil, fmt.Errorf("unusable price %q for %s", pair.PriceUsd, symbol)
	}

	d.mu.Lock()
	history := append(d.prices[symbol], price)
	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}
	d.prices[symbol] = history
	d.mu.Unlock()

	sample := &types.MarketSample{
		Symbol:    symbol,
		Price:     price,
		Volume:    pair.Volume.H24,
		Timestamp: d.clk.Now(),
	}
	if len(history) >= minWarmupLen {
		sample.Indicators = types.Indicators{
			RSI:        ptr(ta.RSI(history, rsiPeriod)),
			MACD:       ptr(ta.MACD(history, macdFast, macdSlow)),
			MA:         ptr(ta.SMA(history, maWindow)),
			Volatility: ptr(ta.Volatility(history, volWindow)),
		}
	}
	return sample, nil
}

// bestPair picks the deepest Solana pair whose base token matches the
// symbol.
func (d *DexScreener) bestPair(ctx context.Context, symbol string) (*dexPair, error) {
	reqURL := d.baseURL + "?q=" + url.QueryEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dexscreener request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("dexscreener rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dexscreener status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed dexScreenerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var best *dexPair
	for i := range parsed.Pairs {
		p := &parsed.Pairs[i]
		if p.ChainID != solanaChainID {
			continue
		}
		if !strings.EqualFold(p.BaseToken.Symbol, symbol) {
			continue
		}
		if best == nil || p.Liquidity.Usd > best.Liquidity.Usd {
			best = p
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no solana pair found for %q", symbol)
	}
	return best, nil
}
