// Package report renders analysis results as plain text for the CLI.
// Reports go to stdout; logs stay on stderr.
package report

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/aknight/ballast/internal/domain"
	"github.com/aknight/ballast/internal/modules/compliance"
	"github.com/aknight/ballast/internal/modules/correlation"
	"github.com/aknight/ballast/internal/modules/sensitivity"
	"github.com/aknight/ballast/internal/modules/stress"
	"github.com/aknight/ballast/internal/reliability"
)

func statusMarker(s compliance.Status) string {
	switch s {
	case compliance.StatusPass:
		return "  ok  "
	case compliance.StatusWarning:
		return " WARN "
	case compliance.StatusBreach:
		return "BREACH"
	default:
		return "  ??  "
	}
}

// Valuation renders the snapshot header shared by several reports.
func Valuation(snap *domain.Snapshot, warnings []string) string {
	var b strings.Builder
	roles := snap.ByCapitalRole()
	total := snap.TotalAUD()

	fmt.Fprintf(&b, "Portfolio value: A$%.0f\n", total)
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, role := range []domain.CapitalRole{
		domain.RoleStabiliser, domain.RoleCompounder, domain.RoleOptionality, domain.RoleUnclassified,
	} {
		value := roles[role]
		if value == 0 && role == domain.RoleUnclassified {
			continue
		}
		share := 0.0
		if total > 0 {
			share = value / total * 100
		}
		fmt.Fprintf(w, "  %s\tA$%.0f\t%.1f%%\n", role, value, share)
	}
	w.Flush()

	for _, warning := range warnings {
		fmt.Fprintf(&b, "  note: %s\n", warning)
	}
	return b.String()
}

// Compliance renders a check run. With detail set every check prints its
// detail line; otherwise only warnings and breaches do.
func Compliance(results []compliance.CheckResult, detail bool) string {
	var b strings.Builder
	summary := compliance.Summarise(results)
	fmt.Fprintf(&b, "Compliance: %d checks, %d pass, %d warnings, %d breaches\n\n",
		len(results), summary.Pass, summary.Warning, summary.Breach)

	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, r := range results {
		fmt.Fprintf(w, "[%s]\t%s\t%s\n", statusMarker(r.Status), r.RuleID, r.Label)
		if r.Detail != "" && (detail || r.Status != compliance.StatusPass) {
			fmt.Fprintf(w, "\t\t  %s\n", r.Detail)
		}
	}
	w.Flush()
	return b.String()
}

// Sensitivity renders the fragility report.
func Sensitivity(rep *sensitivity.Report) string {
	var b strings.Builder
	b.WriteString("Sensitivity\n\n")

	for _, obj := range rep.Objectives {
		fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(string(obj.Severity)), obj.Headline)
		if obj.CurrentState != "" {
			fmt.Fprintf(&b, "    now:     %s\n", obj.CurrentState)
		}
		if obj.Trigger != "" {
			fmt.Fprintf(&b, "    trigger: %s\n", obj.Trigger)
		}
		if obj.Consequence != "" {
			fmt.Fprintf(&b, "    then:    %s\n", obj.Consequence)
		}
		b.WriteString("\n")
	}

	if len(rep.RuleBuffers) > 0 {
		b.WriteString("Closest rule limits:\n")
		w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		for _, buffer := range rep.RuleBuffers {
			fmt.Fprintf(w, "  %s\t%.1f%%\tof\t%.1f%%\t(%.1f pts of headroom)\n",
				buffer.Name, buffer.CurrentPct, buffer.LimitPct, buffer.BufferPct)
		}
		w.Flush()
	}
	return b.String()
}

// SensitivityComparison renders pre- and post-trade severities side by side.
func SensitivityComparison(pre, post *sensitivity.Report) string {
	var b strings.Builder
	b.WriteString("Sensitivity: current vs projected\n\n")

	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "  objective\tcurrent\tprojected\n")
	for _, obj := range pre.Objectives {
		after, found := post.Find(obj.Objective)
		change := ""
		postSeverity := "-"
		if found {
			postSeverity = string(after.Severity)
			if after.Severity != obj.Severity {
				change = " *"
			}
		}
		fmt.Fprintf(w, "  %s\t%s\t%s%s\n", obj.Objective, obj.Severity, postSeverity, change)
	}
	w.Flush()
	return b.String()
}

// Stress renders scenario results. With detail set, per-holding drawdowns
// and the post-shock compliance failures are included.
func Stress(results []*stress.Result, detail bool) string {
	var b strings.Builder
	for _, r := range results {
		a := r.Assessment
		fmt.Fprintf(&b, "%s\n", r.Name)
		fmt.Fprintf(&b, "  total: A$%.0f -> A$%.0f (%.1f%% loss)\n",
			a.TotalPreAUD, a.TotalPostAUD, a.TotalLossPct)
		fmt.Fprintf(&b, "  income bridge: %.1f -> %.1f months", a.IncomeBridgeMonthsPre, a.IncomeBridgeMonthsPost)
		if a.ForcedLiquidation {
			b.WriteString("  FORCED LIQUIDATION")
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "  compounders: -%.1f%%, recovery %.1f years at real return\n",
			a.CompounderLossPct, a.RecoveryYears)
		if a.OptionalityPreAUD > 0 {
			verdict := "did not perform"
			if a.OptionalityPerformed {
				verdict = "performed"
			}
			fmt.Fprintf(&b, "  optionality: %+.1f%% (%s)\n", a.OptionalityChangePct, verdict)
		}

		if detail {
			w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
			for _, h := range r.Holdings {
				fmt.Fprintf(w, "    %s\t%+.1f%%\tA$%.0f -> A$%.0f\t(%s)\n",
					h.Ticker, h.DrawdownPct, h.PreAUD, h.PostAUD, h.Source)
			}
			w.Flush()
			for _, check := range r.Compliance {
				if check.Status == compliance.StatusPass {
					continue
				}
				fmt.Fprintf(&b, "    post-shock %s: %s\n", check.Status, check.Label)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// StressComparison renders a current-vs-projected loss table per scenario.
func StressComparison(pre, post []*stress.Result) string {
	postByID := make(map[stress.ScenarioID]*stress.Result, len(post))
	for _, r := range post {
		postByID[r.ScenarioID] = r
	}

	var b strings.Builder
	b.WriteString("Stress: current vs projected\n\n")
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "  scenario\tloss now\tloss projected\tforced liquidation\n")
	for _, r := range pre {
		after, ok := postByID[r.ScenarioID]
		if !ok {
			continue
		}
		forced := "no / no"
		switch {
		case r.Assessment.ForcedLiquidation && after.Assessment.ForcedLiquidation:
			forced = "YES / YES"
		case r.Assessment.ForcedLiquidation:
			forced = "YES / no"
		case after.Assessment.ForcedLiquidation:
			forced = "no / YES"
		}
		fmt.Fprintf(w, "  %s\t%.1f%%\t%.1f%%\t%s\n",
			r.ScenarioID, r.Assessment.TotalLossPct, after.Assessment.TotalLossPct, forced)
	}
	w.Flush()
	return b.String()
}

// Correlation renders the diversification report.
func Correlation(rep *correlation.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Correlations (window %dd", rep.Window)
	if rep.AsOf != "" {
		fmt.Fprintf(&b, ", data to %s", rep.AsOf)
	}
	b.WriteString(")\n")
	if rep.StressProxy != "" {
		fmt.Fprintf(&b, "  stress proxy %s, %d stress days\n", rep.StressProxy, rep.StressDays)
	}
	for _, note := range rep.Notes {
		fmt.Fprintf(&b, "  note: %s\n", note)
	}
	b.WriteString("\n")

	if len(rep.Roles) > 0 {
		b.WriteString("Within roles:\n")
		w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		for _, role := range rep.Roles {
			line := fmt.Sprintf("  %s\t%s\t(%d members", role.Role, role.Verdict, role.Members)
			if role.AvgCorr != nil {
				line += fmt.Sprintf(", avg %.2f", *role.AvgCorr)
			}
			if role.MaxPairCorr != nil {
				line += fmt.Sprintf(", tightest %s/%s %.2f", role.MaxPairA, role.MaxPairB, *role.MaxPairCorr)
			}
			fmt.Fprintf(w, "%s)\n", line)
		}
		w.Flush()
	}

	if len(rep.CrossRoles) > 0 {
		b.WriteString("Across roles (under stress):\n")
		w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		for _, cr := range rep.CrossRoles {
			if cr.AvgStressCorr != nil {
				fmt.Fprintf(w, "  %s / %s\t%s\t(avg %.2f over %d pairs)\n",
					cr.RoleA, cr.RoleB, cr.Verdict, *cr.AvgStressCorr, cr.PairCount)
			} else {
				fmt.Fprintf(w, "  %s / %s\t%s\n", cr.RoleA, cr.RoleB, cr.Verdict)
			}
		}
		w.Flush()
	}

	if len(rep.Groups) > 0 {
		b.WriteString("Tagged groups:\n")
		w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		for _, g := range rep.Groups {
			verdict := "unmeasured"
			if g.Measured {
				verdict = "NOT holding"
				if g.Valid {
					verdict = "holds"
				}
			}
			line := fmt.Sprintf("  %s\t%s\t(%d members", g.Group, verdict, g.Members)
			if g.MinCorr != nil {
				line += fmt.Sprintf(", weakest pair %.2f", *g.MinCorr)
			}
			fmt.Fprintf(w, "%s)\n", line)
		}
		w.Flush()
	}

	flagged := make([]correlation.PairCorrelation, 0)
	for _, p := range rep.Pairs {
		if p.Flag != "" {
			flagged = append(flagged, p)
		}
	}
	if len(flagged) > 0 {
		b.WriteString("Tag mismatches:\n")
		w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		for _, p := range flagged {
			ref := p.Reference(rep.StressOnly)
			value := "?"
			if ref != nil {
				value = fmt.Sprintf("%.2f", *ref)
			}
			fmt.Fprintf(w, "  %s/%s\t%s\tcorr %s\n", p.TickerA, p.TickerB, p.Flag, value)
		}
		w.Flush()
	}
	return b.String()
}

// Params renders the parameter store with overrides marked.
func Params(values, defaults, descriptions map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, key := range keys {
		marker := ""
		if values[key] != defaults[key] {
			marker = " *"
		}
		fmt.Fprintf(w, "  %s\t%s%s\t%s\n", key, values[key], marker, descriptions[key])
	}
	w.Flush()
	b.WriteString("  (* overridden from default)\n")
	return b.String()
}

// Backups renders the stored backup list.
func Backups(backups []reliability.BackupInfo) string {
	if len(backups) == 0 {
		return "No backups stored.\n"
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, backup := range backups {
		fmt.Fprintf(w, "  %s\t%.1f MB\t%dh old\n",
			backup.Filename, float64(backup.SizeBytes)/1024/1024, backup.AgeHours)
	}
	w.Flush()
	return b.String()
}
