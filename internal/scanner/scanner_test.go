package scanner

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"meme-trading-bot/internal/logger"
)

func TestMockScanRespectsLimit(t *testing.T) {
	m := NewMock(3, 1, logger.Discard())

	tokens, err := m.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(tokens))
	}
	for _, tok := range tokens {
		if tok.Symbol == "" || tok.Price <= 0 {
			t.Errorf("malformed token: %+v", tok)
		}
		if tok.Source != "mock" {
			t.Errorf("source = %s, want mock", tok.Source)
		}
	}
}

func TestMockScanHonorsCancelledContext(t *testing.T) {
	m := NewMock(3, 1, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Scan(ctx); err == nil {
		t.Error("expected context error")
	}
}

func TestSleepCtxReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := sleepCtx(ctx, time.Hour); err == nil {
		t.Error("expected context error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled sleep still waited %v", elapsed)
	}

	if err := sleepCtx(context.Background(), 0); err != nil {
		t.Errorf("zero-duration sleep failed: %v", err)
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"$0.18", 0.18},
		{"1,234.5", 1234.5},
		{"12.5%", 12.5},
		{"$950M", 9.5e8},
		{"2.1B", 2.1e9},
		{"14K", 14000},
		{"garbage", 0},
	}
	for _, tc := range cases {
		if got := parseNumber(tc.in); got != tc.want {
			t.Errorf("parseNumber(%q) = %f, want %f", tc.in, got, tc.want)
		}
	}
}

func TestParseRow(t *testing.T) {
	html := `<table><tbody><tr>
		<td class="sym">WIF</td>
		<td class="name">dogwifhat</td>
		<td class="price">$2.40</td>
		<td class="vol">$420M</td>
		<td class="chg">12.5%</td>
	</tr></tbody></table>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	source := Source{
		Name: "fixture",
		Selectors: RowSelectors{
			Symbol:   "td.sym",
			Token:    "td.name",
			Price:    "td.price",
			Volume:   "td.vol",
			Momentum: "td.chg",
		},
	}

	tok, ok := parseRow(doc.Find("tr").First(), source)
	if !ok {
		t.Fatal("row should parse")
	}
	if tok.Symbol != "WIF" || tok.Name != "dogwifhat" {
		t.Errorf("identity wrong: %+v", tok)
	}
	if tok.Price != 2.4 {
		t.Errorf("price = %f, want 2.4", tok.Price)
	}
	if tok.Volume24h != 4.2e8 {
		t.Errorf("volume = %f, want 4.2e8", tok.Volume24h)
	}
	if tok.Momentum != 0.125 {
		t.Errorf("momentum = %f, want 0.125", tok.Momentum)
	}
	if tok.Source != "fixture" {
		t.Errorf("source = %s, want fixture", tok.Source)
	}
}

func TestParseRowSkipsRowsWithoutSymbol(t *testing.T) {
	html := `<table><tbody><tr><td class="price">$2.40</td></tr></tbody></table>`
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(html))

	source := Source{Selectors: RowSelectors{Symbol: "td.sym", Price: "td.price"}}
	if _, ok := parseRow(doc.Find("tr").First(), source); ok {
		t.Error("a row without a symbol must be skipped")
	}
}
