package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/railwatch/trainview/internal/browse"
	"github.com/railwatch/trainview/internal/stats"
)

type statsOutput struct {
	AvgLengthM     float64        `json:"avg_length_m"`
	AvgSpeedKPH    float64        `json:"avg_speed_kph"`
	ByDayOfWeek    []stats.Bucket `json:"by_day_of_week"`
	ByHourOfDay    []stats.Bucket `json:"by_hour_of_day"`
	SpeedHistogram []stats.Bucket `json:"speed_histogram"`
	SpeedBinWidth  int            `json:"speed_bin_width"`
	TempPast24h    []stats.Bucket `json:"temp_past_24h"`
}

func statsCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate statistics over all trains",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bin, _ := cmd.Flags().GetInt("bin")
			asJSON, _ := cmd.Flags().GetBool("json")
			if !cmd.Flags().Changed("bin") {
				bin = st.app.Browse.SpeedBinWidth
			}
			if bin <= 0 {
				bin = stats.DefaultSpeedBinWidth
			}

			h, err := st.app.Session.Handle(ctx)
			if err != nil {
				return err
			}
			q := st.app.Session.Stats()

			var out statsOutput
			out.SpeedBinWidth = bin
			if out.AvgLengthM, err = q.AvgLengthM(ctx, h); err != nil {
				return err
			}
			if out.AvgSpeedKPH, err = q.AvgSpeedKPH(ctx, h); err != nil {
				return err
			}
			if out.ByDayOfWeek, err = q.CountByDayOfWeek(ctx, h); err != nil {
				return err
			}
			if out.ByHourOfDay, err = q.CountByHourOfDay(ctx, h); err != nil {
				return err
			}
			if out.SpeedHistogram, err = q.SpeedHistogram(ctx, h, bin); err != nil {
				return err
			}
			if out.TempPast24h, err = q.TempPast24hAvg(ctx, h); err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, out)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Average length: %.1f m\n", out.AvgLengthM)
			fmt.Fprintf(w, "Average speed:  %.1f km/h\n\n", out.AvgSpeedKPH)
			browse.WriteBuckets(w, "Trains by day of week", out.ByDayOfWeek, func(k int64) string {
				return stats.DayOfWeekLabels[k]
			})
			fmt.Fprintln(w)
			browse.WriteBuckets(w, "Trains by hour of day", out.ByHourOfDay, func(k int64) string {
				return fmt.Sprintf("%02d:00", k)
			})
			fmt.Fprintln(w)
			browse.WriteBuckets(w, "Trains by speed (km/h)", out.SpeedHistogram, func(k int64) string {
				return strconv.FormatInt(k, 10) + "-" + strconv.FormatInt(k+int64(bin), 10)
			})
			fmt.Fprintln(w)
			browse.WriteBuckets(w, "Temperature past 24h (°C)", out.TempPast24h, func(k int64) string {
				return fmt.Sprintf("%02d:00", k)
			})
			return nil
		},
	}
	cmd.Flags().Int("bin", stats.DefaultSpeedBinWidth, "speed histogram bin width in km/h")
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}
