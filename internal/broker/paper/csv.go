package paper

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/SHKSHBZ/AlgoTrader/internal/types"
)

// loadCSVCandles reads data_cache/<SYMBOL>/<horizon>.csv with the header
// datetime,open,high,low,close,volume. Malformed rows are skipped; a
// missing or empty file returns nil so the caller can fall back to the
// synthetic generator.
func loadCSVCandles(dataDir, symbol string, h types.Horizon) []types.Candle {
	path := filepath.Join(dataDir, symbol, string(h)+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil || len(rows) < 2 {
		return nil
	}

	candles := make([]types.Candle, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 6 {
			continue
		}
		ts, ok := parseTimestamp(row[0])
		if !ok {
			continue
		}
		vals := make([]float64, 5)
		bad := false
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(row[i+1], 64)
			if err != nil {
				bad = true
				break
			}
			vals[i] = v
		}
		if bad {
			continue
		}
		candles = append(candles, types.Candle{
			Ts: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Vol: vals[4],
		})
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].Ts < candles[j].Ts })
	return candles
}

func parseTimestamp(s string) (int64, bool) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix(), true
		}
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 0 {
		return v, true
	}
	return 0, false
}
