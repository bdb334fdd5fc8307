package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sarchlab/wardsim/datarecording"
	"github.com/sarchlab/wardsim/hospital"
	"github.com/sarchlab/wardsim/report"
	"github.com/sarchlab/wardsim/sim/timing"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE.sqlite3",
		Short: "Print the report of every ward in a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := datarecording.NewReader(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			wards, err := loadRecordedWards(cmd.Context(), reader)
			if err != nil {
				return err
			}

			for _, w := range wards {
				if err := report.Summarize(w).Print(cmd.OutOrStdout()); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout())
			}

			return nil
		},
	}
}

// recordedWard is a ward read back from a recording.
type recordedWard struct {
	entry      datarecording.WardEntry
	queueTimes [][]timing.VTime
	snapshots  []hospital.Snapshot
}

func (w *recordedWard) Name() string       { return w.entry.Name }
func (w *recordedWard) Capacity() int      { return w.entry.Capacity }
func (w *recordedWard) NumPriorities() int { return w.entry.NumPriorities }

func (w *recordedWard) QueueTimes(priority int) []timing.VTime {
	return w.queueTimes[priority-1]
}

func (w *recordedWard) Snapshots() []hospital.Snapshot {
	return w.snapshots
}

func loadRecordedWards(
	ctx context.Context,
	reader datarecording.DataReader,
) ([]*recordedWard, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	reader.MapTable(datarecording.WardTable, datarecording.WardEntry{})
	reader.MapTable(datarecording.QueueTimeTable, datarecording.QueueTimeEntry{})
	reader.MapTable(datarecording.AuditTable, datarecording.AuditEntry{})

	entries, _, err := reader.Query(ctx, datarecording.WardTable,
		datarecording.QueryParams{OrderBy: "Name"})
	if err != nil {
		return nil, err
	}

	var wards []*recordedWard

	for _, e := range entries {
		w := &recordedWard{entry: *e.(*datarecording.WardEntry)}
		w.queueTimes = make([][]timing.VTime, w.entry.NumPriorities)

		if err := w.loadQueueTimes(ctx, reader); err != nil {
			return nil, err
		}

		if err := w.loadSnapshots(ctx, reader); err != nil {
			return nil, err
		}

		wards = append(wards, w)
	}

	return wards, nil
}

func (w *recordedWard) loadQueueTimes(
	ctx context.Context,
	reader datarecording.DataReader,
) error {
	rows, _, err := reader.Query(ctx, datarecording.QueueTimeTable,
		datarecording.QueryParams{
			Where:   "Ward = ? AND Counted = 1",
			Args:    []any{w.entry.Name},
			OrderBy: "LeaveQueue",
		})
	if err != nil {
		return err
	}

	for _, r := range rows {
		q := r.(*datarecording.QueueTimeEntry)
		if q.Priority < 1 || q.Priority > len(w.queueTimes) {
			return fmt.Errorf("ward %s has a sample of priority %d",
				w.entry.Name, q.Priority)
		}

		w.queueTimes[q.Priority-1] = append(w.queueTimes[q.Priority-1], q.QueueTime)
	}

	return nil
}

func (w *recordedWard) loadSnapshots(
	ctx context.Context,
	reader datarecording.DataReader,
) error {
	rows, _, err := reader.Query(ctx, datarecording.AuditTable,
		datarecording.QueryParams{
			Where: "Ward = ?",
			Args:  []any{w.entry.Name},
		})
	if err != nil {
		return err
	}

	byTime := make(map[timing.VTime]*hospital.Snapshot)

	for _, r := range rows {
		a := r.(*datarecording.AuditEntry)

		s, ok := byTime[a.Time]
		if !ok {
			s = &hospital.Snapshot{
				Time:    a.Time,
				InBed:   a.InBed,
				Waiting: make([]int, w.entry.NumPriorities),
			}
			byTime[a.Time] = s
		}

		if a.Priority >= 1 && a.Priority <= len(s.Waiting) {
			s.Waiting[a.Priority-1] = a.Waiting
		}
	}

	for _, s := range byTime {
		w.snapshots = append(w.snapshots, *s)
	}

	sort.Slice(w.snapshots, func(i, j int) bool {
		return w.snapshots[i].Time < w.snapshots[j].Time
	})

	return nil
}
