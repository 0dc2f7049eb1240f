package cli

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/railwatch/trainview/internal/assets"
	"github.com/railwatch/trainview/internal/browse"
	"github.com/railwatch/trainview/internal/model"
	"github.com/railwatch/trainview/internal/query"
)

type listOutput struct {
	Trains        []model.Train `json:"trains"`
	FilteredCount int64         `json:"filtered_count"`
	TotalCount    int64         `json:"total_count"`
	Limit         int           `json:"limit"`
	Offset        int           `json:"offset"`
}

type trainOutput struct {
	Train    model.Train `json:"train"`
	Assets   assets.URLs `json:"assets"`
	Favorite bool        `json:"favorite"`
}

func listCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trains, newest first",
		Example: `  trainview list --limit 10
  trainview list --where "fast=speed_px_s * 3.6 / px_per_m > 80" --order "length_px DESC"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")
			asJSON, _ := cmd.Flags().GetBool("json")
			if !cmd.Flags().Changed("limit") {
				limit = st.app.Browse.PageSize
			}

			res, err := st.app.Session.List(cmd.Context(), limit, offset, f)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, listOutput{
					Trains:        res.Trains,
					FilteredCount: res.FilteredCount,
					TotalCount:    res.TotalCount,
					Limit:         limit,
					Offset:        offset,
				})
			}

			out := cmd.OutOrStdout()
			if len(res.Trains) == 0 {
				fmt.Fprintf(out, "No trains found (%d in snapshot)\n", res.TotalCount)
				return nil
			}
			favs := st.app.Favorites.Load()
			browse.WriteTrains(out, res.Trains, favs.Has)
			fmt.Fprintf(out, "\nShowing %d-%d of %d matching (%d total)\n",
				offset+1, offset+len(res.Trains), res.FilteredCount, res.TotalCount)
			return nil
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().Int("limit", 20, "page size, 0 only counts")
	cmd.Flags().Int("offset", 0, "rows to skip")
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}

func getCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show one train with its asset URLs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := lookupTrain(cmd, st, args[0])
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			favorite := st.app.Favorites.Load().Has(t.ID())
			urls := st.app.Assets.ForTrain(t)

			if asJSON {
				return writeJSON(cmd, trainOutput{Train: t, Assets: urls, Favorite: favorite})
			}
			browse.WriteTrain(cmd.OutOrStdout(), t, urls, favorite)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}

func lookupTrain(cmd *cobra.Command, st *state, arg string) (model.Train, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return model.Train{}, fmt.Errorf("invalid train id %q", arg)
	}
	t, ok, err := st.app.Session.Train(cmd.Context(), id)
	if err != nil {
		return model.Train{}, err
	}
	if !ok {
		return model.Train{}, fmt.Errorf("train %d not found", id)
	}
	return t, nil
}

func exportCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all matching trains as a JSON array",
		Long: `Write all trains matching the filter as a JSON array, page by page.
Output ending in .gz is gzip compressed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			outPath, _ := cmd.Flags().GetString("out")
			batch, _ := cmd.Flags().GetInt("batch")

			var w io.Writer = cmd.OutOrStdout()
			closeOut := func() error { return nil }
			if outPath != "" && outPath != "-" {
				w, closeOut, err = createOutput(outPath)
				if err != nil {
					return err
				}
			}

			n, err := exportTrains(cmd, st, w, batch, f)
			if cerr := closeOut(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to write %s: %w", outPath, cerr)
			}
			if err != nil {
				return err
			}
			st.app.Log.Info().Int("trains", n).Str("out", outPath).Msg("Exported trains")
			return nil
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().String("out", "-", "output file, - for stdout")
	cmd.Flags().Int("batch", 500, "trains fetched per query")
	return cmd
}

// createOutput creates the export file at path, gzip compressed when path ends
// in .gz. The returned func writes the gzip footer, closes the file and returns the first error.
func createOutput(path string) (io.Writer, func() error, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return file, file.Close, nil
	}

	gz := gzip.NewWriter(file)
	return gz, func() error {
		err := gz.Close()
		if ferr := file.Close(); err == nil {
			err = ferr
		}
		return err
	}, nil
}

func exportTrains(cmd *cobra.Command, st *state, w io.Writer, batch int, f query.Filter) (int, error) {
	h, err := st.app.Session.Handle(cmd.Context())
	if err != nil {
		return 0, err
	}

	stream := json.BorrowStream(w)
	defer json.ReturnStream(stream)

	n := 0
	stream.WriteArrayStart()
	err = st.app.Session.Builder().Pages(cmd.Context(), h, batch, f, func(res query.Result) error {
		for _, t := range res.Trains {
			if n > 0 {
				stream.WriteMore()
			}
			stream.WriteVal(t)
			n++
		}
		return stream.Flush()
	})
	if err != nil {
		return n, err
	}
	stream.WriteArrayEnd()
	stream.WriteRaw("\n")
	return n, stream.Flush()
}

func infoCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Open the snapshot and print what it holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := st.app.Session.Handle(cmd.Context())
			if err != nil {
				return err
			}
			res, err := st.app.Session.List(cmd.Context(), 0, 0, query.NewFilter())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Snapshot: %s\n", h.URL())
			fmt.Fprintf(out, "Size:     %d bytes\n", h.Size())
			fmt.Fprintf(out, "Opened:   %s\n", h.OpenedAt().Format("2006-01-02 15:04:05 MST"))
			fmt.Fprintf(out, "Trains:   %d\n", res.TotalCount)
			return nil
		},
	}
}
