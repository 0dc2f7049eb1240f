package browse

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/railwatch/trainview/internal/assets"
	"github.com/railwatch/trainview/internal/model"
	"github.com/railwatch/trainview/internal/stats"
)

var (
	heading = color.New(color.Bold)
	dim     = color.New(color.FgHiBlack)
	star    = color.New(color.FgYellow).Sprint("★")
)

// IsFavorite reports whether a train id is marked.
type IsFavorite func(id int64) bool

// WriteTrains prints trains as a table.
func WriteTrains(w io.Writer, trains []model.Train, fav IsFavorite) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tSTART\tDURATION\tLENGTH\tSPEED\tDIRECTION")
	for _, t := range trains {
		mark := ""
		if fav != nil && fav(t.ID()) {
			mark = star
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%.1f m\t%.1f km/h\t%s\n",
			mark,
			t.ID(),
			t.StartTS().Format(time.RFC3339),
			t.Duration().Round(100*time.Millisecond),
			t.LengthM(),
			t.SpeedKPH(),
			t.Direction(),
		)
	}
	_ = tw.Flush()
}

// WriteTrain prints all details of one train.
func WriteTrain(w io.Writer, t model.Train, urls assets.URLs, favorite bool) {
	title := fmt.Sprintf("Train %d", t.ID())
	if favorite {
		title += " " + star
	}
	heading.Fprintln(w, title)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  start\t%s\n", t.StartTS().Format(time.RFC3339Nano))
	fmt.Fprintf(tw, "  end\t%s\n", t.EndTS().Format(time.RFC3339Nano))
	fmt.Fprintf(tw, "  frames\t%d\n", t.NFrames())
	fmt.Fprintf(tw, "  length\t%.2f m\n", t.LengthM())
	fmt.Fprintf(tw, "  speed\t%.2f km/h (%s)\n", t.SpeedKPH(), t.Direction())
	fmt.Fprintf(tw, "  acceleration\t%.3f m/s²\n", t.AccelMPS2())
	if up, ok := t.UploadedAt(); ok {
		fmt.Fprintf(tw, "  uploaded\t%s\n", up.Format(time.RFC3339))
	} else {
		fmt.Fprintf(tw, "  uploaded\t%s\n", dim.Sprint("no"))
	}
	fmt.Fprintf(tw, "  image\t%s\n", urls.Image)
	fmt.Fprintf(tw, "  thumbnail\t%s\n", urls.Thumb)
	fmt.Fprintf(tw, "  gif\t%s\n", urls.GIF)
	_ = tw.Flush()
}

// WriteBuckets prints a histogram with a bar per bucket.
func WriteBuckets(w io.Writer, title string, buckets []stats.Bucket, label func(int64) string) {
	heading.Fprintln(w, title)
	if len(buckets) == 0 {
		dim.Fprintln(w, "  no data")
		return
	}

	maxValue := 0.0
	for _, b := range buckets {
		maxValue = max(maxValue, b.Value)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	for _, b := range buckets {
		width := 0
		if maxValue > 0 {
			width = int(b.Value / maxValue * 40)
		}
		fmt.Fprintf(tw, "  %s\t%g\t%s\n", label(b.Key), b.Value, strings.Repeat("█", width))
	}
	_ = tw.Flush()
}
