package generation

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the finished requests still retained in the history
type Stats struct {
	Finished   int     `json:"finished"`
	Completed  int     `json:"completed"`
	Superseded int     `json:"superseded"`
	Failed     int     `json:"failed"`
	MeanMillis float64 `json:"mean_ms"`
	P50Millis  float64 `json:"p50_ms"`
	P95Millis  float64 `json:"p95_ms"`
	MeanChunks float64 `json:"mean_chunks"`
}

// Stats computes durations and outcomes over Recent
func (p *Pipeline) Stats() Stats {
	return summarize(p.Recent())
}

func summarize(infos []Info) Stats {
	s := Stats{Finished: len(infos)}
	if len(infos) == 0 {
		return s
	}

	durations := make([]float64, 0, len(infos))
	chunks := make([]float64, 0, len(infos))
	for _, info := range infos {
		switch {
		case info.Error != "":
			s.Failed++
		case info.State == StateSuperseded:
			s.Superseded++
		default:
			s.Completed++
		}
		durations = append(durations, float64(info.FinishedAt.Sub(info.IssuedAt).Milliseconds()))
		chunks = append(chunks, float64(info.Applied+info.Discarded))
	}

	s.MeanMillis = stat.Mean(durations, nil)
	s.MeanChunks = stat.Mean(chunks, nil)

	sort.Float64s(durations)
	s.P50Millis = stat.Quantile(0.5, stat.Empirical, durations, nil)
	s.P95Millis = stat.Quantile(0.95, stat.Empirical, durations, nil)
	return s
}
