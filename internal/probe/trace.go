package probe

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hugo-lorenzo-mato/netdiag/internal/core"
	"github.com/hugo-lorenzo-mato/netdiag/internal/supervise"
)

// Hop is one node on the traced path.
type Hop struct {
	Number  int       `json:"number"`
	Address string    `json:"address,omitempty"`
	Times   []float64 `json:"times_ms,omitempty"`
	AvgMS   float64   `json:"avg_ms,omitempty"`
	LossPct float64   `json:"loss_pct"`
}

// PathResult is the outcome of a path trace.
type PathResult struct {
	Host    string  `json:"host"`
	Method  string  `json:"method"`
	Hops    []Hop   `json:"hops"`
	AvgMS   float64 `json:"avg_ms,omitempty"`
	LossPct float64 `json:"loss_pct"`
}

// TracePath traces the route to host. It prefers mtr for its machine-readable
// report and falls back to traceroute. Both run as supervised children so
// they are subject to the trace timeout and cleanup.
func (p *Prober) TracePath(ctx context.Context, host string) (*PathResult, error) {
	if out, err := p.runTrace(ctx, p.mtrCmd,
		[]string{"-rwc", "5", "-n", "--json", host}, "mtr trace to "+host); err == nil {
		if path, perr := parseMTROutput(out, host); perr == nil {
			return path, nil
		} else {
			p.logger.Warn("probe: mtr output unparseable", "host", host, "error", perr)
		}
	} else {
		p.logger.Debug("probe: mtr unavailable, trying traceroute", "host", host, "error", err)
	}

	out, err := p.runTrace(ctx, p.tracerouteCmd,
		[]string{"-n", "-m", "30", "-w", "2", host}, "traceroute to "+host)
	if err != nil {
		return nil, err
	}
	return parseTracerouteOutput(string(out), host)
}

func (p *Prober) runTrace(ctx context.Context, command string, args []string, desc string) ([]byte, error) {
	handle, err := p.sup.Spawn(supervise.Spec{
		Command:     command,
		Args:        args,
		Timeout:     p.cfg.TraceTimeout,
		Description: desc,
	})
	if err != nil {
		return nil, err
	}
	stdout, stderr, err := handle.Communicate(ctx, nil)
	if err != nil {
		return nil, err
	}
	if handle.ExitCode() != 0 {
		return nil, core.ErrNetwork("TRACE_FAILED",
			command+" exited with "+strconv.Itoa(handle.ExitCode())+": "+strings.TrimSpace(string(stderr)))
	}
	return stdout, nil
}

// mtrReport mirrors the subset of `mtr --json` output the trace consumes.
type mtrReport struct {
	Report struct {
		Hubs []struct {
			Count int     `json:"count"`
			Host  string  `json:"host"`
			Loss  float64 `json:"Loss%"`
			Best  float64 `json:"Best"`
			Avg   float64 `json:"Avg"`
			Wrst  float64 `json:"Wrst"`
		} `json:"hubs"`
	} `json:"report"`
}

func parseMTROutput(data []byte, host string) (*PathResult, error) {
	var report mtrReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, core.ErrNetwork("TRACE_PARSE", "decoding mtr report").WithCause(err)
	}

	path := &PathResult{Host: host, Method: "mtr"}
	var latencySum float64
	var responding int
	for _, hub := range report.Report.Hubs {
		// Hops that never answered show up as "???".
		if hub.Host == "???" {
			continue
		}
		hop := Hop{
			Number:  hub.Count,
			Address: hub.Host,
			AvgMS:   hub.Avg,
			LossPct: hub.Loss,
		}
		for _, t := range []float64{hub.Best, hub.Avg, hub.Wrst} {
			if t > 0 {
				hop.Times = append(hop.Times, t)
			}
		}
		path.Hops = append(path.Hops, hop)
		if hub.Avg > 0 {
			latencySum += hub.Avg
			responding++
		}
	}
	if len(path.Hops) > 0 {
		last := path.Hops[len(path.Hops)-1]
		path.LossPct = last.LossPct
	}
	if responding > 0 {
		path.AvgMS = latencySum / float64(responding)
	}
	return path, nil
}

// parseTracerouteOutput parses the classic numeric traceroute format:
//
//	 1  192.168.1.1  0.5 ms  0.4 ms  0.6 ms
//	 2  * * *
func parseTracerouteOutput(output, host string) (*PathResult, error) {
	path := &PathResult{Host: host, Method: "traceroute"}

	var latencySum float64
	var responding int
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		number, err := strconv.Atoi(fields[0])
		if err != nil {
			// Header line ("traceroute to ...") or garbage.
			continue
		}

		hop := Hop{Number: number}
		probes := 0
		for i := 1; i < len(fields); i++ {
			switch {
			case fields[i] == "*":
				probes++
			case fields[i] == "ms":
				// unit token following a time value
			default:
				if t, err := strconv.ParseFloat(fields[i], 64); err == nil {
					hop.Times = append(hop.Times, t)
					probes++
				} else if hop.Address == "" {
					hop.Address = fields[i]
				}
			}
		}
		if probes > 0 {
			hop.LossPct = float64(probes-len(hop.Times)) / float64(probes) * 100
		}
		if len(hop.Times) > 0 {
			var sum float64
			for _, t := range hop.Times {
				sum += t
			}
			hop.AvgMS = sum / float64(len(hop.Times))
			latencySum += hop.AvgMS
			responding++
		}
		path.Hops = append(path.Hops, hop)
	}

	if len(path.Hops) == 0 {
		return nil, core.ErrNetwork("TRACE_PARSE", "traceroute produced no hops for "+host)
	}
	path.LossPct = path.Hops[len(path.Hops)-1].LossPct
	if responding > 0 {
		path.AvgMS = latencySum / float64(responding)
	}
	return path, nil
}
