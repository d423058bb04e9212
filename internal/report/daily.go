package report

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"meme-trading-bot/internal/clock"
	"meme-trading-bot/internal/recall"
	"meme-trading-bot/internal/types"
)

type aggRow struct {
	Symbol    string
	BuyQty    float64
	BuyValue  float64
	SellQty   float64
	SellValue float64
}

// Summarizer builds daily trade summaries out of the recall store.
type Summarizer struct {
	store  *recall.Store
	outDir string
	clk    clock.Clock
	log    *slog.Logger
}

func NewSummarizer(store *recall.Store, outDir string, clk clock.Clock, log *slog.Logger) *Summarizer {
	return &Summarizer{store: store, outDir: outDir, clk: clk, log: log}
}

// SummarizeToday writes a summary for the current date.
func (s *Summarizer) SummarizeToday() (string, error) {
	return s.SummarizeDay(s.clk.Now())
}

// SummarizeDay aggregates the day's executed trades by symbol and
// writes a CSV. A day without trades produces no file and no error.
func (s *Summarizer) SummarizeDay(t time.Time) (string, error) {
	from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	to := from.Add(24*time.Hour - time.Nanosecond)
	kind := recall.KindTrade

	records, err := s.store.Query(recall.Filter{
		Kind:  &kind,
		From:  &from,
		To:    &to,
		Limit: 10000,
	})
	if err != nil {
		return "", fmt.Errorf("query trades: %w", err)
	}

	aggs := map[string]*aggRow{}
	for _, rec := range records {
		trade, ok := rec.Payload.(recall.TradePayload)
		if !ok || trade.Status != types.ExecExecuted {
			continue
		}
		row := aggs[trade.Symbol]
		if row == nil {
			row = &aggRow{Symbol: trade.Symbol}
			aggs[trade.Symbol] = row
		}
		switch trade.Action {
		case types.ActionBuy:
			row.BuyQty += trade.Quantity
			row.BuyValue += trade.Quantity * trade.Price
		case types.ActionSell:
			row.SellQty += trade.Quantity
			row.SellValue += trade.Quantity * trade.Price
		}
	}
	if len(aggs) == 0 {
		return "", nil
	}

	outPath := filepath.Join(s.outDir, from.Format("2006-01-02")+".csv")
	if err := s.writeCSV(outPath, aggs); err != nil {
		return "", err
	}
	s.log.Info("daily summary written", "path", outPath, "symbols", len(aggs))
	return outPath, nil
}

func (s *Summarizer) writeCSV(outPath string, aggs map[string]*aggRow) error {
	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()

	headers := []string{"symbol", "buy_qty", "buy_avg", "sell_qty", "sell_avg", "realized_pnl"}
	if err := w.Write(headers); err != nil {
		return err
	}

	var totalPnL float64
	for _, k := range keys {
		r := aggs[k]
		var buyAvg, sellAvg float64
		if r.BuyQty > 0 {
			buyAvg = r.BuyValue / r.BuyQty
		}
		if r.SellQty > 0 {
			sellAvg = r.SellValue / r.SellQty
		}
		matched := r.BuyQty
		if r.SellQty < matched {
			matched = r.SellQty
		}
		pnl := matched * (sellAvg - buyAvg)
		totalPnL += pnl

		rec := []string{
			r.Symbol,
			strconv.FormatFloat(r.BuyQty, 'f', 4, 64),
			strconv.FormatFloat(buyAvg, 'f', 6, 64),
			strconv.FormatFloat(r.SellQty, 'f', 4, 64),
			strconv.FormatFloat(sellAvg, 'f', 6, 64),
			strconv.FormatFloat(pnl, 'f', 2, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}

	total := []string{"TOTAL", "", "", "", "", strconv.FormatFloat(totalPnL, 'f', 2, 64)}
	return w.Write(total)
}
