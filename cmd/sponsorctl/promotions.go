package main

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	promotiondomain "github.com/sponsorhub/sponsorhub/internal/promotion/domain"
	promotionrepository "github.com/sponsorhub/sponsorhub/internal/promotion/repository"
)

func promotionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promotions",
		Short: "Inspect promotion visibility",
	}
	cmd.AddCommand(promotionsVisibilityCommand())
	return cmd
}

// promotionsVisibilityCommand replays the public visibility predicate against
// one stored promotion and explains each failing condition.
func promotionsVisibilityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "visibility <promotion-id>",
		Short: "Explain why a promotion is or is not publicly visible",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gdb, _, err := openDB()
			if err != nil {
				return err
			}

			id, err := snowflake.ParseString(args[0])
			if err != nil {
				return fmt.Errorf("invalid promotion id %q", args[0])
			}

			repo := promotionrepository.NewRepository(gdb)
			promotion, err := repo.FindByID(cmd.Context(), id)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			fmt.Printf("promotion %s (%q)\n", promotion.ID, promotion.Title)
			fmt.Printf("  sponsor:         %s\n", promotion.SponsorID)
			fmt.Printf("  status:          %s\n", promotion.Status)
			fmt.Printf("  approval_status: %s\n", promotion.ApprovalStatus)
			fmt.Printf("  publish_to_site: %t\n", promotion.PublishToSite)
			fmt.Printf("  start_date:      %s\n", promotion.StartDate.Format(time.RFC3339))
			if promotion.EndDate != nil {
				fmt.Printf("  end_date:        %s\n", promotion.EndDate.Format(time.RFC3339))
			} else {
				fmt.Printf("  end_date:        (none)\n")
			}

			if promotion.Visible(now) {
				fmt.Println("verdict: VISIBLE on the public site")
				return nil
			}

			fmt.Println("verdict: NOT visible")
			if promotion.Status != promotiondomain.StatusActive {
				fmt.Printf("  - status is %q, must be %q\n", promotion.Status, promotiondomain.StatusActive)
			}
			if promotion.StartDate.After(now) {
				fmt.Printf("  - start_date is %s in the future\n", promotion.StartDate.Sub(now).Round(time.Minute))
			}
			if promotion.EndDate != nil && promotion.EndDate.Before(now) {
				fmt.Printf("  - ended %s ago\n", now.Sub(*promotion.EndDate).Round(time.Minute))
			}
			return nil
		},
	}
}
