// Package report builds, renders and persists diagnosis run reports.
package report

import (
	"time"

	"github.com/hugo-lorenzo-mato/netdiag/internal/probe"
)

// Summary aggregates one batch run.
type Summary struct {
	Targets     int            `json:"targets"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	SuccessRate float64        `json:"success_rate"`
	Duration    time.Duration  `json:"duration"`
	LatencyMin  time.Duration  `json:"latency_min,omitempty"`
	LatencyAvg  time.Duration  `json:"latency_avg,omitempty"`
	LatencyMax  time.Duration  `json:"latency_max,omitempty"`
	TLSVersions map[string]int `json:"tls_versions,omitempty"`
	HTTPStatus  map[int]int    `json:"http_status,omitempty"`
}

// RunReport is the persisted document for one batch run.
type RunReport struct {
	RunID      string         `json:"run_id"`
	ConfigName string         `json:"config_name"`
	Timestamp  time.Time      `json:"timestamp"`
	Summary    Summary        `json:"summary"`
	Results    []probe.Result `json:"results"`
}

// Summarize computes batch statistics over the results. Latency figures come
// from the successful TCP connect attempts.
func Summarize(results []probe.Result, duration time.Duration) Summary {
	s := Summary{
		Targets:     len(results),
		Duration:    duration,
		TLSVersions: make(map[string]int),
		HTTPStatus:  make(map[int]int),
	}

	var latencySum time.Duration
	var latencyCount int
	for _, res := range results {
		if res.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
		for _, tcp := range res.TCP {
			if !tcp.Connected {
				continue
			}
			latencySum += tcp.ConnectTime
			latencyCount++
			if s.LatencyMin == 0 || tcp.ConnectTime < s.LatencyMin {
				s.LatencyMin = tcp.ConnectTime
			}
			if tcp.ConnectTime > s.LatencyMax {
				s.LatencyMax = tcp.ConnectTime
			}
		}
		if res.TLS != nil {
			s.TLSVersions[res.TLS.Version]++
		}
		if res.HTTP != nil {
			s.HTTPStatus[res.HTTP.StatusCode]++
		}
	}
	if latencyCount > 0 {
		s.LatencyAvg = latencySum / time.Duration(latencyCount)
	}
	if s.Targets > 0 {
		s.SuccessRate = float64(s.Succeeded) / float64(s.Targets)
	}
	return s
}
