package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/railwatch/trainview/internal/browse"
)

func favoritesCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Manage favorite trains",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List favorite trains found in the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			favs := st.app.Favorites.Load()
			out := cmd.OutOrStdout()
			if favs.Len() == 0 {
				fmt.Fprintln(out, "No favorites")
				return nil
			}

			found, missing, err := st.app.Session.Trains(cmd.Context(), favs.IDs())
			if err != nil {
				return err
			}
			browse.WriteTrains(out, found, nil)
			if len(missing) > 0 {
				fmt.Fprintf(out, "\nNot in this snapshot: %v\n", missing)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle [id]",
		Short: "Add or remove a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			favs := st.app.Favorites.Load()
			t, err := lookupTrain(cmd, st, args[0])
			if err != nil {
				return err
			}
			on := favs.Toggle(t.ID())
			if err := st.app.Favorites.Save(favs); err != nil {
				return err
			}
			if on {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Added train %d to favorites\n", t.ID())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed train %d from favorites\n", t.ID())
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove all favorites",
		RunE: func(cmd *cobra.Command, args []string) error {
			favs := st.app.Favorites.Load()
			n := favs.Len()
			favs.Clear()
			if err := st.app.Favorites.Save(favs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared %d favorite(s)\n", n)
			return nil
		},
	})

	return cmd
}
