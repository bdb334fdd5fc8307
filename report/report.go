// Package report condenses the queue-time samples and audit snapshots of a
// ward into summary statistics.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sarchlab/wardsim/hospital"
	"github.com/sarchlab/wardsim/sim/timing"
)

// Ward is what a report is made from.
type Ward interface {
	Name() string
	Capacity() int
	NumPriorities() int
	QueueTimes(priority int) []timing.VTime
	Snapshots() []hospital.Snapshot
}

// QueueTimeStats summarizes the queue times of one priority class. All fields
// but Priority and Count are NaN when there are no samples.
type QueueTimeStats struct {
	Priority int
	Count    int
	Mean     float64
	P50      float64
	P95      float64
	Max      float64
}

// Report is the summary of one ward.
type Report struct {
	Ward         string
	Capacity     int
	QueueTimes   []QueueTimeStats
	NumSnapshots int

	// MeanOccupancy is the mean number of occupied beds over the snapshots.
	MeanOccupancy float64

	// MeanWaiting is the mean number of waiting patients per priority over
	// the snapshots.
	MeanWaiting []float64
}

// Summarize builds the report of a ward.
func Summarize(w Ward) Report {
	r := Report{
		Ward:     w.Name(),
		Capacity: w.Capacity(),
	}

	for p := 1; p <= w.NumPriorities(); p++ {
		r.QueueTimes = append(r.QueueTimes, summarizeQueueTimes(p, w.QueueTimes(p)))
	}

	snapshots := w.Snapshots()
	r.NumSnapshots = len(snapshots)
	r.MeanOccupancy = math.NaN()
	r.MeanWaiting = make([]float64, w.NumPriorities())

	if len(snapshots) == 0 {
		for i := range r.MeanWaiting {
			r.MeanWaiting[i] = math.NaN()
		}

		return r
	}

	inBed := make([]float64, len(snapshots))
	for i, s := range snapshots {
		inBed[i] = float64(s.InBed)
	}
	r.MeanOccupancy = stat.Mean(inBed, nil)

	waiting := make([]float64, len(snapshots))
	for p := range r.MeanWaiting {
		for i, s := range snapshots {
			waiting[i] = float64(s.WaitingWithPriority(p + 1))
		}

		r.MeanWaiting[p] = stat.Mean(waiting, nil)
	}

	return r
}

func summarizeQueueTimes(priority int, times []timing.VTime) QueueTimeStats {
	s := QueueTimeStats{
		Priority: priority,
		Count:    len(times),
		Mean:     math.NaN(),
		P50:      math.NaN(),
		P95:      math.NaN(),
		Max:      math.NaN(),
	}

	if len(times) == 0 {
		return s
	}

	sorted := append([]float64(nil), times...)
	sort.Float64s(sorted)

	s.Mean = stat.Mean(sorted, nil)
	s.P50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.P95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	s.Max = floats.Max(sorted)

	return s
}

// Utilization is the mean share of beds occupied.
func (r Report) Utilization() float64 {
	if r.Capacity == 0 {
		return math.NaN()
	}

	return r.MeanOccupancy / float64(r.Capacity)
}

// Print writes the report as aligned tables.
func (r Report) Print(w io.Writer) error {
	fmt.Fprintf(w, "Ward %s: %d beds, %d snapshots, "+
		"mean occupancy %s (%s)\n\n",
		r.Ward, r.Capacity, r.NumSnapshots,
		formatValue(r.MeanOccupancy), formatPercent(r.Utilization()))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "Priority\tPatients\tMean\tP50\tP95\tMax\tMean waiting\t")

	for i, q := range r.QueueTimes {
		meanWaiting := math.NaN()
		if i < len(r.MeanWaiting) {
			meanWaiting = r.MeanWaiting[i]
		}

		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t\n",
			q.Priority, q.Count,
			formatValue(q.Mean), formatValue(q.P50),
			formatValue(q.P95), formatValue(q.Max),
			formatValue(meanWaiting))
	}

	return tw.Flush()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}

	return fmt.Sprintf("%.3f", v)
}

func formatPercent(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}

	return fmt.Sprintf("%.1f%%", v*100)
}
