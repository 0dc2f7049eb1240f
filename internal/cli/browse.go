package cli

import (
	"github.com/spf13/cobra"

	"github.com/railwatch/trainview/internal/browse"
)

func browseCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse trains interactively",
		Long: `Browse trains page by page. The filter and page are kept in a location
such as /trains?page=2, printed after every change. Start another session at
the same view with --location.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			location, _ := cmd.Flags().GetString("location")

			b, err := browse.New(browse.Options{
				Source:    st.app.Session,
				Location:  location,
				PageSize:  st.app.Browse.PageSize,
				Assets:    st.app.Assets,
				Favorites: st.app.Favorites.Load(),
				Store:     st.app.Favorites,
				Out:       cmd.OutOrStdout(),
				Log:       st.app.Log.With().Str("component", "browse").Logger(),
			})
			if err != nil {
				return err
			}
			defer b.Close()

			return b.Run(cmd.Context(), cmd.InOrStdin())
		},
	}
	cmd.Flags().String("location", "/trains", "location to start at")
	return cmd
}
