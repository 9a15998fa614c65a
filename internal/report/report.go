// Package report renders sweep and walk-forward results as CSV and JSON
// tables and publishes them to artifact storage.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/rewind/internal/archive"
	"github.com/newthinker/rewind/internal/optimize"
	"github.com/newthinker/rewind/internal/walkforward"
)

// WriteSweepCSV renders the ranked sweep rows. Parameter keys become
// columns, sorted, so every sweep of the same strategy lines up.
func WriteSweepCSV(w io.Writer, report *optimize.Report) error {
	keys := paramKeys(report)

	cw := csv.NewWriter(w)
	header := append([]string{"rank", "eval_index", "score"}, keys...)
	header = append(header,
		"net_pct", "max_drawdown_pct", "profit_factor", "win_rate", "total_trades", "error")
	if err := cw.Write(header); err != nil {
		return err
	}

	for rank, row := range report.Rows {
		rec := []string{
			strconv.Itoa(rank + 1),
			strconv.Itoa(row.Index),
			formatFloat(row.Score),
		}
		for _, k := range keys {
			rec = append(rec, formatValue(row.Params[k]))
		}
		m := row.Metrics
		rec = append(rec,
			formatFloat(m.NetPct),
			formatFloat(m.MaxDrawdownPct),
			formatFloat(m.ProfitFactor),
			formatFloat(m.WinRate),
			strconv.Itoa(m.TotalTrades),
			row.Err,
		)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteWindowsCSV renders one row per walk-forward window.
func WriteWindowsCSV(w io.Writer, res *walkforward.Result) error {
	cw := csv.NewWriter(w)
	header := []string{
		"index", "train_start", "train_end", "test_end",
		"train_score", "test_score", "param_drift", "performance_decay",
		"test_net_pct", "test_max_drawdown_pct", "test_trades", "best_params", "error",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, win := range res.Windows {
		params, err := json.Marshal(win.BestParams)
		if err != nil {
			return fmt.Errorf("encoding window %d params: %w", win.Index, err)
		}
		rec := []string{
			strconv.Itoa(win.Index),
			win.TrainStart.UTC().Format(time.RFC3339),
			win.TrainEnd.UTC().Format(time.RFC3339),
			win.TestEnd.UTC().Format(time.RFC3339),
			formatFloat(win.TrainScore),
			formatFloat(win.TestScore),
			formatOptional(win.ParamDrift),
			formatOptional(win.PerformanceDecay),
			formatFloat(win.TestMetrics.NetPct),
			formatFloat(win.TestMetrics.MaxDrawdownPct),
			strconv.Itoa(win.TestMetrics.TotalTrades),
			string(params),
			win.Err,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEquityCSV renders the stitched out-of-sample curve as
// window,time,equity rows.
func WriteEquityCSV(w io.Writer, curve []walkforward.OOSPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"window", "time", "equity"}); err != nil {
		return err
	}
	for _, p := range curve {
		rec := []string{strconv.Itoa(p.Window), p.Time.UTC().Format(time.RFC3339), formatFloat(p.Equity)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Publisher writes rendered artifacts to storage under a run prefix.
type Publisher struct {
	Store  archive.Storage
	Logger *zap.Logger
}

// PublishSweep stores the sweep as sweep.json and sweep.csv under prefix.
func (p *Publisher) PublishSweep(ctx context.Context, prefix string, report *optimize.Report) error {
	if err := p.writeJSON(ctx, prefix+"/sweep.json", report); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := WriteSweepCSV(&buf, report); err != nil {
		return err
	}
	return p.write(ctx, prefix+"/sweep.csv", buf.Bytes())
}

// PublishWalkForward stores windows.csv, oos_equity.csv, and the full
// result as walkforward.json under prefix.
func (p *Publisher) PublishWalkForward(ctx context.Context, prefix string, res *walkforward.Result) error {
	if err := p.writeJSON(ctx, prefix+"/walkforward.json", res); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := WriteWindowsCSV(&buf, res); err != nil {
		return err
	}
	if err := p.write(ctx, prefix+"/windows.csv", buf.Bytes()); err != nil {
		return err
	}
	buf.Reset()
	if err := WriteEquityCSV(&buf, res.OOSCurve); err != nil {
		return err
	}
	return p.write(ctx, prefix+"/oos_equity.csv", buf.Bytes())
}

func (p *Publisher) writeJSON(ctx context.Context, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return p.write(ctx, path, data)
}

func (p *Publisher) write(ctx context.Context, path string, data []byte) error {
	if err := p.Store.Write(ctx, path, data); err != nil {
		return err
	}
	if p.Logger != nil {
		p.Logger.Info("published artifact", zap.String("path", path), zap.Int("bytes", len(data)))
	}
	return nil
}

func paramKeys(report *optimize.Report) []string {
	seen := make(map[string]struct{})
	for _, row := range report.Rows {
		for k := range row.Params {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case float64:
		return formatFloat(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
