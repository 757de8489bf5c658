package ta

import "math"

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n)
}

// EMASeries returns the full EMA series (same length as vals, seeded with
// an SMA over the first n values; positions before n-1 are NaN).
func EMASeries(vals []float64, n int) []float64 {
	out := make([]float64, len(vals))
	if len(vals) < n || n <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		out[i] = math.NaN()
		sum += vals[i]
	}
	out[n-1] = sum / float64(n)
	k := 2.0 / (float64(n) + 1.0)
	for i := n; i < len(vals); i++ {
		out[i] = vals[i]*k + out[i-1]*(1.0-k)
	}
	return out
}

func EMA(vals []float64, n int) float64 {
	s := EMASeries(vals, n)
	if len(s) == 0 {
		return math.NaN()
	}
	return s[len(s)-1]
}

func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100.0 - (100.0 / (1.0 + rs))
}

func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}

func Bollinger(closes []float64, n int, k float64) (mid, up, low float64) {
	mid = SMA(closes, n)
	sd := StdDev(closes, n)
	up = mid + k*sd
	low = mid - k*sd
	return
}

func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return math.NaN()
	}
	n := period
	if len(closes) < n+1 {
		return math.NaN()
	}
	trs := make([]float64, 0, n)
	for i := len(closes) - n; i < len(closes); i++ {
		tr1 := highs[i] - lows[i]
		tr2 := math.Abs(highs[i] - closes[i-1])
		tr3 := math.Abs(lows[i] - closes[i-1])
		tr := math.Max(tr1, math.Max(tr2, tr3))
		trs = append(trs, tr)
	}
	sum := 0.0
	for _, v := range trs {
		sum += v
	}
	return sum / float64(n)
}

// MACD returns the MACD line (EMA12-EMA26), signal line (EMA9 of MACD) and
// histogram for the last bar.
func MACD(closes []float64, fast, slow, signal int) (macd, sig, hist float64) {
	if len(closes) < slow+signal || fast <= 0 || slow <= fast || signal <= 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	fastS := EMASeries(closes, fast)
	slowS := EMASeries(closes, slow)
	line := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		line = append(line, fastS[i]-slowS[i])
	}
	sigS := EMASeries(line, signal)
	macd = line[len(line)-1]
	sig = sigS[len(sigS)-1]
	hist = macd - sig
	return
}

// ADX measures trend strength with Wilder smoothing over the given period.
func ADX(highs, lows, closes []float64, period int) float64 {
	if len(highs) != len(lows) || len(lows) != len(closes) || period <= 0 {
		return math.NaN()
	}
	// Needs period bars to seed the smoothed DM/TR plus period DX values.
	if len(closes) < 2*period+1 {
		return math.NaN()
	}
	n := len(closes)
	smTR, smPlus, smMinus := 0.0, 0.0, 0.0
	dxs := make([]float64, 0, n)
	for i := 1; i < n; i++ {
		upMove := highs[i] - highs[i-1]
		downMove := lows[i-1] - lows[i]
		plusDM, minusDM := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}
		tr := math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))

		if i <= period {
			smTR += tr
			smPlus += plusDM
			smMinus += minusDM
			if i < period {
				continue
			}
		} else {
			smTR = smTR - smTR/float64(period) + tr
			smPlus = smPlus - smPlus/float64(period) + plusDM
			smMinus = smMinus - smMinus/float64(period) + minusDM
		}
		if smTR == 0 {
			dxs = append(dxs, 0)
			continue
		}
		pdi := 100.0 * smPlus / smTR
		mdi := 100.0 * smMinus / smTR
		if pdi+mdi == 0 {
			dxs = append(dxs, 0)
			continue
		}
		dxs = append(dxs, 100.0*math.Abs(pdi-mdi)/(pdi+mdi))
	}
	if len(dxs) < period {
		return math.NaN()
	}
	adx := 0.0
	for _, v := range dxs[:period] {
		adx += v
	}
	adx /= float64(period)
	for _, v := range dxs[period:] {
		adx = (adx*float64(period-1) + v) / float64(period)
	}
	return adx
}

// Stochastic returns %K (fast, over kPeriod) and %D (SMA of %K over dPeriod).
func Stochastic(highs, lows, closes []float64, kPeriod, dPeriod int) (k, d float64) {
	if len(highs) != len(lows) || len(lows) != len(closes) || kPeriod <= 0 || dPeriod <= 0 {
		return math.NaN(), math.NaN()
	}
	if len(closes) < kPeriod+dPeriod-1 {
		return math.NaN(), math.NaN()
	}
	ks := make([]float64, 0, dPeriod)
	for j := len(closes) - dPeriod; j < len(closes); j++ {
		hh, ll := math.Inf(-1), math.Inf(1)
		for i := j - kPeriod + 1; i <= j; i++ {
			hh = math.Max(hh, highs[i])
			ll = math.Min(ll, lows[i])
		}
		if hh == ll {
			ks = append(ks, 50.0)
			continue
		}
		ks = append(ks, 100.0*(closes[j]-ll)/(hh-ll))
	}
	k = ks[len(ks)-1]
	sum := 0.0
	for _, v := range ks {
		sum += v
	}
	d = sum / float64(len(ks))
	return
}

// Momentum is the percent change over the last n bars.
func Momentum(closes []float64, n int) float64 {
	if len(closes) < n+1 || n <= 0 {
		return math.NaN()
	}
	prev := closes[len(closes)-1-n]
	if prev == 0 {
		return math.NaN()
	}
	return (closes[len(closes)-1] - prev) / prev * 100.0
}
