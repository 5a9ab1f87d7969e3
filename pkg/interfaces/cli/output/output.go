// Package output renders scheduling results for the CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/creamline/batchplan/pkg/application/analytics"
	"github.com/creamline/batchplan/pkg/domain/entities"
	"github.com/creamline/batchplan/pkg/scheduler"
)

// Report is the render-ready view of one scheduling run.
type Report struct {
	RunID       string            `json:"run_id"`
	State       string            `json:"state"`
	Entries     []EntryView       `json:"entries"`
	Infeasible  []InfeasibleView  `json:"infeasible"`
	Reserved    map[string]string `json:"reserved_totals"`
	Explanation string            `json:"explanation,omitempty"`
}

// EntryView is one placed batch.
type EntryView struct {
	Request  string            `json:"request"`
	Line     string            `json:"line"`
	Start    time.Time         `json:"start"`
	End      time.Time         `json:"end"`
	Reserved map[string]string `json:"reserved"`
}

// InfeasibleView is one request the run could not place.
type InfeasibleView struct {
	Request   string `json:"request"`
	Reason    string `json:"reason"`
	Additive  string `json:"additive,omitempty"`
	Shortfall string `json:"shortfall,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// NewReport flattens a run result into a Report. The explanation may be
// empty.
func NewReport(run *scheduler.Result, explanation string) Report {
	report := Report{
		RunID:       run.RunID,
		State:       run.State.String(),
		Entries:     make([]EntryView, 0, len(run.Entries)),
		Infeasible:  make([]InfeasibleView, 0, len(run.Infeasible)),
		Reserved:    quantityMap(run.Ledger),
		Explanation: explanation,
	}
	for _, entry := range run.Entries {
		report.Entries = append(report.Entries, EntryView{
			Request:  string(entry.RequestID),
			Line:     string(entry.Line),
			Start:    entry.Start,
			End:      entry.End,
			Reserved: quantityMap(entry.Reserved),
		})
	}
	for _, inf := range run.Infeasible {
		view := InfeasibleView{
			Request: string(inf.RequestID),
			Reason:  inf.Reason.Code.String(),
			Detail:  inf.Reason.Detail,
		}
		if inf.Reason.Additive != "" {
			view.Additive = string(inf.Reason.Additive)
			view.Shortfall = inf.Reason.Shortfall.String()
		}
		report.Infeasible = append(report.Infeasible, view)
	}
	return report
}

func quantityMap(m map[entities.AdditiveID]entities.Quantity) map[string]string {
	out := make(map[string]string, len(m))
	for id, q := range m {
		out[string(id)] = q.String()
	}
	return out
}

// Render writes the report in the requested format.
func Render(w io.Writer, report Report, format string) error {
	switch format {
	case "text":
		return renderText(w, report)
	case "json":
		return renderJSON(w, report)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func renderText(w io.Writer, report Report) error {
	fmt.Fprintf(w, "📊 Scheduling Run %s (%s)\n", report.RunID, report.State)
	fmt.Fprintf(w, "==================================================\n\n")

	fmt.Fprintf(w, "Placed: %d\n", len(report.Entries))
	fmt.Fprintf(w, "Infeasible: %d\n\n", len(report.Infeasible))

	if len(report.Entries) > 0 {
		fmt.Fprintf(w, "📋 Placed Batches:\n")
		fmt.Fprintf(w, "%-12s %-10s %-20s %-20s\n", "Request", "Line", "Start", "End")
		fmt.Fprintf(w, "%-12s %-10s %-20s %-20s\n", "------------", "----------", "--------------------", "--------------------")
		for _, e := range report.Entries {
			fmt.Fprintf(w, "%-12s %-10s %-20s %-20s\n",
				e.Request, e.Line,
				e.Start.Format("2006-01-02 15:04"),
				e.End.Format("2006-01-02 15:04"))
		}
		fmt.Fprintln(w)
	}

	if len(report.Infeasible) > 0 {
		fmt.Fprintf(w, "⚠️  Unschedulable Requests:\n")
		fmt.Fprintf(w, "%-12s %-22s %s\n", "Request", "Reason", "Detail")
		fmt.Fprintf(w, "%-12s %-22s %s\n", "------------", "----------------------", "------")
		for _, inf := range report.Infeasible {
			detail := inf.Detail
			if inf.Additive != "" {
				detail = fmt.Sprintf("short %s of %s", inf.Shortfall, inf.Additive)
			}
			fmt.Fprintf(w, "%-12s %-22s %s\n", inf.Request, inf.Reason, detail)
		}
		fmt.Fprintln(w)
	}

	if len(report.Reserved) > 0 {
		fmt.Fprintf(w, "📦 Reserved Additives:\n")
		ids := make([]string, 0, len(report.Reserved))
		for id := range report.Reserved {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(w, "  %s: %s\n", id, report.Reserved[id])
		}
		fmt.Fprintln(w)
	}

	if report.Explanation != "" {
		fmt.Fprintf(w, "💡 Explanation:\n%s\n", report.Explanation)
	}
	return nil
}

func renderJSON(w io.Writer, report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// RenderRisks writes stockout projections in the requested format.
func RenderRisks(w io.Writer, risks []analytics.StockoutRisk, format string) error {
	switch format {
	case "json":
		type riskView struct {
			Additive      string `json:"additive"`
			Stock         string `json:"stock"`
			DailyUsage    string `json:"daily_usage"`
			DaysRemaining string `json:"days_remaining"`
			Risk          string `json:"risk"`
		}
		views := make([]riskView, 0, len(risks))
		for _, r := range risks {
			views = append(views, riskView{
				Additive:      string(r.Additive),
				Stock:         r.Stock.String(),
				DailyUsage:    r.DailyUsage.String(),
				DaysRemaining: r.DaysRemaining.StringFixed(1),
				Risk:          string(r.Risk),
			})
		}
		data, err := json.MarshalIndent(views, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "text":
		fmt.Fprintf(w, "⚠️  Stockout Risk:\n")
		fmt.Fprintf(w, "%-20s %-12s %-12s %-10s %s\n", "Additive", "Stock", "Daily Use", "Days Left", "Risk")
		fmt.Fprintf(w, "%-20s %-12s %-12s %-10s %s\n", "--------------------", "------------", "------------", "----------", "----")
		for _, r := range risks {
			fmt.Fprintf(w, "%-20s %-12s %-12s %-10s %s\n",
				r.Additive, r.Stock, r.DailyUsage, r.DaysRemaining.StringFixed(1), r.Risk)
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
