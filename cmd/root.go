package cmd

import (
	"fmt"
	"os"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/cobra"

	"github.com/username/momoflow/src/config"
	"github.com/username/momoflow/src/database"
	"github.com/username/momoflow/src/logger"
	"github.com/username/momoflow/src/parsers"
	_ "github.com/username/momoflow/src/parsers/momo"
	"github.com/username/momoflow/src/processors"
	"github.com/username/momoflow/src/services"
)

var (
	outputPath string
	dbPath     string
	rulesPath  string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "momoflow [xml-file]",
	Short: "Process a mobile-money SMS export into the dashboard database",
	Long: `Parses an SMS-export XML document, normalizes and categorizes every
transaction, loads them idempotently into the sqlite store and exports the
aggregated dashboard JSON. Failed records are dead-lettered, not fatal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: run,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Path of the exported dashboard JSON (default from JSON_OUTPUT_PATH)")
	RootCmd.Flags().StringVar(&dbPath, "db", "", "Path of the sqlite database (default from DATABASE_PATH)")
	RootCmd.Flags().StringVar(&rulesPath, "rules", "", "Path of the category rule file (default from CATEGORY_RULES_PATH)")
}

func run(cmd *cobra.Command, args []string) error {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	inputPath := config.Cfg.XMLInputPath
	if len(args) == 1 {
		inputPath = args[0]
	}
	if outputPath == "" {
		outputPath = config.Cfg.JSONOutputPath
	}
	if dbPath == "" {
		dbPath = config.Cfg.DatabasePath
	}
	if rulesPath == "" {
		rulesPath = config.Cfg.CategoryRulesPath
	}

	database.InitDB(dbPath)
	database.RunMigrations()

	rules := processors.DefaultRules()
	if _, err := os.Stat(rulesPath); err == nil {
		loaded, err := processors.LoadRules(rulesPath)
		if err != nil {
			return fmt.Errorf("loading category rules: %w", err)
		}
		rules = loaded
		logger.L.Info("Category rules loaded", "path", rulesPath, "rules", len(rules))
	} else {
		logger.L.Info("No rule file found, using built-in category rules", "path", rulesPath)
	}

	categorizer, err := processors.NewCategorizer(rules)
	if err != nil {
		return fmt.Errorf("compiling category rules: %w", err)
	}
	normalizer := processors.NewNormalizer(
		config.Cfg.DefaultCountryPrefix,
		config.Cfg.MinTransactionAmount,
		config.Cfg.MaxTransactionAmount,
	)
	parser, err := parsers.GetParser("momo")
	if err != nil {
		return err
	}

	loader := services.NewLoaderService()
	summaryCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)
	aggregator := services.NewAggregatorService(loader, summaryCache)
	pipeline := services.NewPipelineService(
		parser, normalizer, categorizer, loader, aggregator, config.Cfg.DeadLetterPath)

	report, err := pipeline.Run(inputPath, outputPath)
	if err != nil {
		return err
	}

	fmt.Printf("Batch %s finished\n", report.BatchID)
	fmt.Printf("  parsed:          %d\n", report.Parsed)
	fmt.Printf("  normalized:      %d\n", report.NormalizedOK)
	fmt.Printf("  categorized:     %d\n", report.CategorizedOK)
	fmt.Printf("  loaded:          %d (inserted %d, updated %d, duplicates %d)\n",
		report.LoadedOK, report.Inserted, report.Updated, report.SkippedDuplicate)
	fmt.Printf("  dead-lettered:   %d\n", report.DeadLettered)
	if report.Summary != nil {
		fmt.Printf("  total persisted: %d (volume %.2f)\n",
			report.Summary.TotalTransactions, report.Summary.TotalVolume)
	}
	return nil
}
