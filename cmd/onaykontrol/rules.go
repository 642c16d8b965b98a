package main

import (
	"fmt"

	"github.com/rt0111/onayformukontrol/internal/database"
	"github.com/rt0111/onayformukontrol/internal/rules"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect, validate and store the ruleset",
	Long: `Inspect, validate and store the risk phrase and approval threshold ruleset.

Examples:
  # Print the active ruleset as YAML
  onaykontrol rules show

  # Check an edited ruleset before using it
  onaykontrol rules validate kurallar.yaml

  # Store a ruleset in PostgreSQL
  ONAY_DATABASE_URL=postgres://... onaykontrol rules seed kurallar.yaml`,
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active ruleset as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		rs, err := loadRuleset(ctx, cfg, logger)
		if err != nil {
			return err
		}
		data, err := rs.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate [file.yaml]",
	Short: "Validate a ruleset file, or the built-in ruleset",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := rulesetArg(args)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Kural seti geçerli: %d risk ifadesi, %d onay eşiği\n",
			rs.PhraseCount(), len(rs.Thresholds))
		return nil
	},
}

var rulesSeedCmd = &cobra.Command{
	Use:   "seed [file.yaml]",
	Short: "Create the rule tables and store a ruleset in PostgreSQL",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if cfg.Database.URL == "" {
			return fmt.Errorf("database.url is required (set ONAY_DATABASE_URL)")
		}

		rs, err := rulesetArg(args)
		if err != nil {
			return err
		}

		db, err := database.NewDB(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return err
		}
		defer db.Close()

		logger.Info(ctx, "Initializing database schema")
		if err := db.Initialize(ctx); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}

		if err := db.SeedRuleset(ctx, rs); err != nil {
			return err
		}

		logger.Info(ctx, "Ruleset stored",
			zap.Int("risk_phrases", rs.PhraseCount()),
			zap.Int("thresholds", len(rs.Thresholds)),
		)
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesShowCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesSeedCmd)
}

// rulesetArg loads the file named by args, or the built-in ruleset
func rulesetArg(args []string) (*rules.Ruleset, error) {
	if len(args) == 0 {
		return rules.Default()
	}
	return rules.LoadFile(args[0])
}
