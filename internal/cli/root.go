package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/railwatch/trainview/internal/config"
	"github.com/railwatch/trainview/internal/query"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// state is shared by the root command and its subcommands.
type state struct {
	opts Options
	app  *App
}

// RootCmd builds the trainview command tree.
func RootCmd() *cobra.Command {
	return newRootCmd(&state{})
}

// Execute runs the command tree with args. The app is closed afterwards, also
// when the command failed.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	st := &state{}
	root := newRootCmd(st)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	defer st.close()
	return root.ExecuteContext(ctx)
}

func newRootCmd(st *state) *cobra.Command {
	root := &cobra.Command{
		Use:   AppName,
		Short: "Browse train detections recorded in a snapshot database",
		Long: `trainview downloads a read-only snapshot of detected trains and lets you
list, filter, inspect and aggregate them. Snapshots can be local files or
http(s):// and s3:// URLs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			st.opts.Stderr = cmd.ErrOrStderr()
			app, err := NewApp(st.opts)
			if err != nil {
				return err
			}
			st.app = app
			return nil
		},
	}

	root.PersistentFlags().StringVar(&st.opts.ConfigPath, "config", ".", "config file, or the directory holding "+config.FileName)
	root.PersistentFlags().StringVar(&st.opts.SnapshotURL, "snapshot", "", "snapshot URL, overrides snapshot.url")
	root.PersistentFlags().StringVar(&st.opts.LogLevel, "log-level", "", "log level, overrides logLevel")

	root.AddCommand(listCmd(st))
	root.AddCommand(getCmd(st))
	root.AddCommand(statsCmd(st))
	root.AddCommand(exportCmd(st))
	root.AddCommand(browseCmd(st))
	root.AddCommand(favoritesCmd(st))
	root.AddCommand(assetsCmd(st))
	root.AddCommand(infoCmd(st))

	return root
}

func (st *state) close() {
	if st.app != nil {
		st.app.Close()
		st.app = nil
	}
}

// addFilterFlags registers --where and --order on cmd.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("where", nil, "filter predicate as key=sql, repeatable")
	cmd.Flags().String("order", "", "sql order clause, newest first when empty")
}

// filterFromFlags builds the filter given by --where and --order.
func filterFromFlags(cmd *cobra.Command) (query.Filter, error) {
	wheres, _ := cmd.Flags().GetStringArray("where")
	order, _ := cmd.Flags().GetString("order")

	f := query.NewFilter()
	for _, w := range wheres {
		key, frag, ok := strings.Cut(w, "=")
		key = strings.TrimSpace(key)
		frag = strings.TrimSpace(frag)
		if !ok || key == "" || frag == "" {
			return query.Filter{}, fmt.Errorf("invalid --where %q, want key=predicate", w)
		}
		f = f.With(key, frag)
	}
	return f.OrderBy(order), nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
