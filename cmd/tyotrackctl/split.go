package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/domain"
)

type splitOptions struct {
	date         string
	start        string
	end          string
	dayStart     string
	eveningStart string
	nightStart   string
	format       string
}

// splitRow is one calendar-day part in the JSON output
type splitRow struct {
	Date      string             `json:"date"`
	StartTime string             `json:"start_time"`
	EndTime   string             `json:"end_time"`
	Role      domain.SegmentRole `json:"role"`
	domain.ClassifiedHours
}

func newSplitCmd() *cobra.Command {
	opts := &splitOptions{}

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Show how a shift is split across days and classified",
		Example: `  tyotrackctl split --date 2025-06-09 --start 22:00 --end 06:00
  tyotrackctl split --start 14:00 --end 23:30 --evening-start 17:00 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.date, "date", "", "shift start date, YYYY-MM-DD (default today)")
	f.StringVar(&opts.start, "start", "", "start time, HH:mm")
	f.StringVar(&opts.end, "end", "", "end time, HH:mm")
	f.StringVar(&opts.dayStart, "day-start", "06:00", "start of the day window")
	f.StringVar(&opts.eveningStart, "evening-start", "18:00", "start of the evening window")
	f.StringVar(&opts.nightStart, "night-start", "22:00", "start of the night window")
	f.StringVar(&opts.format, "format", "table", "output format: table, json")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func runSplit(out io.Writer, opts *splitOptions) error {
	date := domain.DateOf(time.Now())
	if opts.date != "" {
		d, err := domain.ParseDate(opts.date)
		if err != nil {
			return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", opts.date)
		}
		date = d
	}

	b, err := domain.ParseBoundaries(opts.dayStart, opts.eveningStart, opts.nightStart)
	if err != nil {
		return err
	}
	if !b.Ordered() {
		return fmt.Errorf("boundaries must be ordered: %s", b)
	}

	segments, err := domain.SplitShift(date, opts.start, opts.end)
	if err != nil {
		return err
	}

	var rows []splitRow
	var total domain.ClassifiedHours
	for _, c := range domain.ClassifyAll(segments, b) {
		rows = append(rows, splitRow{
			Date:            domain.FormatDate(c.Date),
			StartTime:       domain.FormatClock(c.StartMinutes),
			EndTime:         domain.FormatClock(c.EndMinutes),
			Role:            c.Role,
			ClassifiedHours: c.Hours,
		})
		total = total.Add(c.Hours)
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"segments": rows,
			"totals":   total,
		})
	case "table":
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tSTART\tEND\tDAY\tEVENING\tNIGHT\tTOTAL")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\n",
				r.Date, r.StartTime, r.EndTime, r.Day, r.Evening, r.Night, r.Total)
		}
		fmt.Fprintf(tw, "total\t\t\t%.2f\t%.2f\t%.2f\t%.2f\n", total.Day, total.Evening, total.Night, total.Total)
		return tw.Flush()
	default:
		return fmt.Errorf("unknown --format %q", opts.format)
	}
}
