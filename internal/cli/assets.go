package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/railwatch/trainview/internal/assets"
)

func assetsCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets [id]",
		Short: "Print the image, thumbnail and gif URLs of a train",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := lookupTrain(cmd, st, args[0])
			if err != nil {
				return err
			}
			urls := st.app.Assets.ForTrain(t)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, urls.Image)
			fmt.Fprintln(out, urls.Thumb)
			fmt.Fprintln(out, urls.GIF)
			return nil
		},
	}
	cmd.AddCommand(assetsNameCmd())
	cmd.AddCommand(assetsParseCmd())
	return cmd
}

func assetsNameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "name [timestamp]",
		Short: "Print the blob file name for an RFC 3339 timestamp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ext, _ := cmd.Flags().GetString("ext")
			ts, err := time.Parse(time.RFC3339Nano, args[0])
			if err != nil {
				return fmt.Errorf("invalid timestamp: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), assets.FileName(ts, ext))
			return nil
		},
	}
	cmd.Flags().String("ext", "jpg", "file extension")
	return cmd
}

func assetsParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [name]",
		Short: "Print the timestamp encoded in a blob file name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, ext, err := assets.ParseFileName(assets.RevertThumbName(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ts.Format(time.RFC3339Nano), ext)
			return nil
		},
	}
}
