package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	invitationdomain "github.com/sponsorhub/sponsorhub/internal/invitation/domain"
	sponsorrepository "github.com/sponsorhub/sponsorhub/internal/sponsor/repository"
	sponsorservice "github.com/sponsorhub/sponsorhub/internal/sponsor/service"
	"gorm.io/gorm"
)

func linksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Inspect sponsor-admin links",
	}
	cmd.AddCommand(linksCheckCommand())
	return cmd
}

// linksCheckCommand reports sponsor-admin profiles that have no sponsor
// link. With --fix it relinks each one from their most recent accepted
// invitation, the usual cause being a crash between invitation acceptance
// and link creation.
func linksCheckCommand() *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Find sponsor admins without a sponsor link",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gdb, log, err := openDB()
			if err != nil {
				return err
			}

			node, err := snowflake.NewNode(1)
			if err != nil {
				return err
			}
			svc := sponsorservice.NewService(gdb, sponsorrepository.NewRepository(gdb), node, nil, log)

			orphans, err := svc.FindOrphanedAdmins(cmd.Context())
			if err != nil {
				return err
			}
			if len(orphans) == 0 {
				fmt.Println("no orphaned sponsor admins")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "USER ID\tEMAIL\tACCEPTED INVITATION SPONSOR")
			repairable := 0
			for _, orphan := range orphans {
				sponsorID := acceptedInvitationSponsor(gdb, orphan.Email)
				label := "-"
				if sponsorID != "" {
					label = sponsorID
					repairable++
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", orphan.UserID, orphan.Email, label)
			}
			w.Flush()

			if !fix {
				fmt.Printf("%d orphaned admin(s), %d repairable; rerun with --fix to relink\n", len(orphans), repairable)
				return nil
			}

			relinked := 0
			for _, orphan := range orphans {
				raw := acceptedInvitationSponsor(gdb, orphan.Email)
				if raw == "" {
					continue
				}
				sponsorID, err := snowflake.ParseString(raw)
				if err != nil {
					continue
				}
				if err := svc.LinkAdmin(cmd.Context(), sponsorID, orphan.UserID); err != nil {
					fmt.Fprintf(os.Stderr, "relink %s: %v\n", orphan.Email, err)
					continue
				}
				relinked++
			}
			fmt.Printf("relinked %d admin(s)\n", relinked)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "relink admins from their accepted invitations")
	return cmd
}

func acceptedInvitationSponsor(gdb *gorm.DB, email string) string {
	var invitation invitationdomain.Invitation
	err := gdb.
		Where("email = ? AND status = ? AND sponsor_id IS NOT NULL", email, invitationdomain.StatusAccepted).
		Order("accepted_at DESC").
		First(&invitation).Error
	if err != nil || invitation.SponsorID == nil {
		return ""
	}
	return invitation.SponsorID.String()
}
