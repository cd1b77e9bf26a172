package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hugo-lorenzo-mato/netdiag/internal/core"
	"github.com/hugo-lorenzo-mato/netdiag/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/netdiag/internal/probe"
)

// Color palette
var (
	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red
	colorMuted   = lipgloss.Color("#9CA3AF") // Muted gray
	colorAccent  = lipgloss.Color("#06B6D4") // Cyan
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	okStyle      = lipgloss.NewStyle().Foreground(colorSuccess)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarning)
	errStyle     = lipgloss.NewStyle().Foreground(colorError)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	sectionStyle = lipgloss.NewStyle().Bold(true)
)

func stateStyle(state core.HealthState) lipgloss.Style {
	switch state {
	case core.HealthCritical:
		return errStyle
	case core.HealthWarning:
		return warnStyle
	default:
		return okStyle
	}
}

// RenderRun renders a run report for the terminal.
func RenderRun(rep RunReport) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Diagnosis run %s", rep.RunID)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s  config=%s",
		rep.Timestamp.Format(time.RFC3339), rep.ConfigName)))
	b.WriteString("\n\n")

	for _, res := range rep.Results {
		b.WriteString(renderResult(res))
		b.WriteString("\n")
	}

	b.WriteString(renderSummary(rep.Summary))
	return b.String()
}

func renderResult(res probe.Result) string {
	var b strings.Builder

	marker := okStyle.Render("✓")
	if !res.Success {
		marker = errStyle.Render("✗")
	}
	b.WriteString(fmt.Sprintf("%s %s %s\n", marker,
		sectionStyle.Render(res.Target),
		mutedStyle.Render(res.TotalTime.Round(time.Millisecond).String())))

	if res.DNS != nil && len(res.DNS.IPs) > 0 {
		b.WriteString(fmt.Sprintf("  dns   %s (%d addresses, %s)\n",
			res.DNS.PrimaryIP, len(res.DNS.IPs),
			res.DNS.Resolution.Round(time.Millisecond)))
	}
	for _, tcp := range res.TCP {
		if tcp.Connected {
			b.WriteString(fmt.Sprintf("  tcp   %s:%d %s\n", tcp.TargetIP, tcp.Port,
				okStyle.Render(tcp.ConnectTime.Round(time.Millisecond).String())))
		} else {
			b.WriteString(fmt.Sprintf("  tcp   %s:%d %s\n", tcp.TargetIP, tcp.Port,
				errStyle.Render("refused")))
		}
	}
	if res.TLS != nil {
		line := fmt.Sprintf("  tls   %s %s", res.TLS.Version, res.TLS.CipherSuite)
		if cert := res.TLS.Certificate; cert != nil {
			expiry := fmt.Sprintf("expires in %dd", cert.DaysUntilExpiry)
			switch {
			case cert.Expired:
				expiry = errStyle.Render("EXPIRED")
			case cert.DaysUntilExpiry < 30:
				expiry = warnStyle.Render(expiry)
			}
			line += " (" + expiry + ")"
		}
		b.WriteString(line + "\n")
	}
	if res.HTTP != nil {
		style := okStyle
		if res.HTTP.StatusCode >= 400 {
			style = errStyle
		}
		b.WriteString(fmt.Sprintf("  http  %s %s\n",
			style.Render(fmt.Sprintf("%d", res.HTTP.StatusCode)),
			mutedStyle.Render(res.HTTP.ResponseTime.Round(time.Millisecond).String())))
	}
	if res.Path != nil {
		b.WriteString(fmt.Sprintf("  path  %d hops via %s, avg %.1fms, loss %.0f%%\n",
			len(res.Path.Hops), res.Path.Method, res.Path.AvgMS, res.Path.LossPct))
	}
	for _, msg := range res.Errors {
		b.WriteString("  " + errStyle.Render("error ") + msg + "\n")
	}
	return b.String()
}

func renderSummary(s Summary) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Summary"))
	b.WriteString(fmt.Sprintf("\n  targets %d  ok %s  failed %s  rate %.0f%%\n",
		s.Targets,
		okStyle.Render(fmt.Sprintf("%d", s.Succeeded)),
		errStyle.Render(fmt.Sprintf("%d", s.Failed)),
		s.SuccessRate*100))
	if s.LatencyAvg > 0 {
		b.WriteString(fmt.Sprintf("  connect latency min/avg/max %s/%s/%s\n",
			s.LatencyMin.Round(time.Millisecond),
			s.LatencyAvg.Round(time.Millisecond),
			s.LatencyMax.Round(time.Millisecond)))
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  completed in %s",
		s.Duration.Round(time.Millisecond))))
	b.WriteString("\n")
	return b.String()
}

// RenderStatus renders a resource status report for the terminal.
func RenderStatus(st diagnostics.StatusReport) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Resource status"))
	b.WriteString("  ")
	b.WriteString(stateStyle(st.Overall).Render(strings.ToUpper(string(st.Overall))))
	b.WriteString("\n")

	if st.OpenFDs >= 0 {
		b.WriteString(fmt.Sprintf("  descriptors %d/%d (%.0f%%)\n",
			st.OpenFDs, st.SoftLimit, st.FDRatio*100))
	}
	for _, name := range []string{
		core.MetricFileHandlers,
		core.MetricActiveProcesses,
		core.MetricMemoryUsageMB,
		core.MetricCPUUsagePercent,
		core.MetricLongRunningProcesses,
		core.MetricTimeoutProcesses,
	} {
		if v, ok := st.Snapshot.Value(name); ok {
			b.WriteString(fmt.Sprintf("  %s %g\n", name, v))
		}
	}
	for _, w := range st.Warnings {
		b.WriteString("  " + warnStyle.Render("warning ") + w + "\n")
	}
	for _, e := range st.Errors {
		b.WriteString("  " + errStyle.Render("error ") + e + "\n")
	}
	return b.String()
}
