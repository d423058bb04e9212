package scanner

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"meme-trading-bot/internal/types"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Source is one trending-tokens page and the selectors to read it.
type Source struct {
	Name      string
	URL       string
	Selectors RowSelectors
	RateLimit time.Duration
}

// RowSelectors are the CSS selectors for one token row.
type RowSelectors struct {
	Row      string
	Symbol   string
	Token    string
	Price    string
	Volume   string
	Momentum string
}

func defaultSources() []Source {
	return []Source{
		{
			Name: "coingecko",
			URL:  "https://www.coingecko.com/en/categories/meme-token",
			Selectors: RowSelectors{
				Row:      "table tbody tr",
				Symbol:   "td.coin-name .tw-hidden",
				Token:    "td.coin-name a",
				Price:    "td.td-price span",
				Volume:   "td.td-liquidity_score span",
				Momentum: "td.td-change24h span",
			},
			RateLimit: 2 * time.Second,
		},
		{
			Name: "dexscreener",
			URL:  "https://dexscreener.com/solana?rankBy=trendingScoreH6&order=desc",
			Selectors: RowSelectors{
				Row:      "a.ds-dex-table-row",
				Symbol:   ".ds-dex-table-row-base-token-symbol",
				Token:    ".ds-dex-table-row-base-token-name",
				Price:    ".ds-dex-table-row-col-price",
				Volume:   ".ds-dex-table-row-col-volume",
				Momentum: ".ds-dex-table-row-col-price-change-h24",
			},
			RateLimit: 2 * time.Second,
		},
	}
}

// Live scrapes trending meme tokens from public listing pages. Any
// source failure degrades to whatever the other sources returned; a
// scan never fails the caller.
type Live struct {
	sources   []Source
	maxTokens int
	timeout   time.Duration
	log       *slog.Logger
}

func NewLive(maxTokens int, timeout time.Duration, log *slog.Logger) *Live {
	return &Live{
		sources:   defaultSources(),
		maxTokens: maxTokens,
		timeout:   timeout,
		log:       log,
	}
}

func (l *Live) Scan(ctx context.Context) ([]types.TrendingToken, error) {
	var tokens []types.TrendingToken
	for i, source := range l.sources {
		if err := ctx.Err(); err != nil {
			return tokens, err
		}
		if i > 0 {
			if err := sleepCtx(ctx, l.sources[i-1].RateLimit); err != nil {
				return tokens, err
			}
		}
		found, err := l.scanSource(source)
		if err != nil {
			l.log.Warn("scan source failed", "source", source.Name, "error", err)
			continue
		}
		tokens = append(tokens, found...)
	}
	if len(tokens) > l.maxTokens {
		tokens = tokens[:l.maxTokens]
	}
	return tokens, nil
}

func (l *Live) scanSource(source Source) ([]types.TrendingToken, error) {
	var tokens []types.TrendingToken

	c := colly.NewCollector(
		colly.AllowedDomains(hostOf(source.URL)),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(l.timeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", userAgent)
	})

	c.OnHTML(source.Selectors.Row, func(e *colly.HTMLElement) {
		if tok, ok := parseRow(e.DOM, source); ok {
			tokens = append(tokens, tok)
		}
	})

	if err := c.Visit(source.URL); err != nil {
		return nil, err
	}
	c.Wait()
	return tokens, nil
}

// parseRow reads one listing row. Rows without a symbol or a positive
// price are skipped.
func parseRow(row *goquery.Selection, source Source) (types.TrendingToken, bool) {
	sel := source.Selectors

	symbol := strings.ToUpper(strings.TrimSpace(row.Find(sel.Symbol).First().Text()))
	if symbol == "" {
		return types.TrendingToken{}, false
	}
	price := parseNumber(row.Find(sel.Price).First().Text())
	if price <= 0 {
		return types.TrendingToken{}, false
	}

	return types.TrendingToken{
		Symbol:    symbol,
		Name:      strings.TrimSpace(row.Find(sel.Token).First().Text()),
		Price:     price,
		Volume24h: parseNumber(row.Find(sel.Volume).First().Text()),
		Momentum:  parseNumber(row.Find(sel.Momentum).First().Text()) / 100,
		Source:    source.Name,
	}, true
}

// parseNumber strips listing-page decoration ($, commas, %, K/M/B
// suffixes) and parses what remains.
func parseNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")

	mult := 1.0
	switch {
	case strings.HasSuffix(s, "B"):
		mult, s = 1e9, strings.TrimSuffix(s, "B")
	case strings.HasSuffix(s, "M"):
		mult, s = 1e6, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "K"):
		mult, s = 1e3, strings.TrimSuffix(s, "K")
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v * mult
}

// sleepCtx waits for d between source visits, returning early if the
// context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
