package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sponsorhub/sponsorhub/internal/config"
	"github.com/sponsorhub/sponsorhub/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const programName = "sponsorctl"

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Diagnostics for the sponsor portal database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		linksCommand(),
		invitationsCommand(),
		promotionsCommand(),
		rlsCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}

// openDB connects with the service role so diagnostics see every row.
func openDB() (config.Config, *gorm.DB, *zap.Logger, error) {
	cfg, dual, log, err := openDual()
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	return cfg, dual.Service, log, nil
}

func openDual() (config.Config, *db.Dual, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("load config: %w", err)
	}

	log := zap.NewNop()
	dual, err := db.NewDual(cfg, log)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, dual, log, nil
}
