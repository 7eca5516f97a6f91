package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"github.com/sponsorhub/sponsorhub/internal/clock"
	invitationrepository "github.com/sponsorhub/sponsorhub/internal/invitation/repository"
	invitationservice "github.com/sponsorhub/sponsorhub/internal/invitation/service"
	profilerepository "github.com/sponsorhub/sponsorhub/internal/profile/repository"
	"github.com/sponsorhub/sponsorhub/internal/providers/email"
	sponsorrepository "github.com/sponsorhub/sponsorhub/internal/sponsor/repository"
)

func invitationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invitations",
		Short: "Inspect the invitation flow",
	}
	cmd.AddCommand(invitationsInspectCommand())
	return cmd
}

// invitationsInspectCommand dumps the whole invitation-to-access state for
// one email: invitations, profile, sponsor link. The usual question it
// answers is "why can this person not see their sponsor dashboard".
func invitationsInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <email>",
		Short: "Show invitation, profile and link state for an email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gdb, log, err := openDB()
			if err != nil {
				return err
			}

			node, err := snowflake.NewNode(1)
			if err != nil {
				return err
			}
			svc := invitationservice.NewService(
				invitationrepository.NewRepository(gdb),
				profilerepository.NewRepository(gdb),
				sponsorrepository.NewRepository(gdb),
				&email.NoOpProvider{},
				clock.NewSystemClock(),
				node,
				nil,
				cfg,
				log,
			)

			state, err := svc.Inspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(state); err != nil {
				return err
			}

			if state.ProfileRole == "sponsor_admin" && !state.HasLink {
				fmt.Fprintln(os.Stderr, "note: sponsor_admin without a sponsor link; see `sponsorctl links check`")
			}
			return nil
		},
	}
}
