package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	config "shop-analytics-api/configs"
	"shop-analytics-api/pkg/logger"
	"shop-analytics-api/pkg/models"
	"shop-analytics-api/pkg/server"
)

var (
	shopDomain  string
	token       string
	forceIntent string
	forceSince  string
	forceUntil  string
	outputJSON  bool
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one analytics question against a Shopify store",
	Long: `Run the question pipeline once from the command line:
classification, ShopifyQL construction, execution and explanation.

Use --intent to bypass classification (e.g. --intent reorder_forecast).`,
	Args: cobra.ArbitraryArgs,
	RunE: runAsk,
}

func init() {
	_ = godotenv.Load()

	rootCmd.Flags().StringVar(&shopDomain, "shop", os.Getenv("SHOPIFY_SHOP_DOMAIN"), "shop domain (e.g. demo.myshopify.com)")
	rootCmd.Flags().StringVar(&token, "token", os.Getenv("SHOPIFY_ACCESS_TOKEN"), "Admin API access token")
	rootCmd.Flags().StringVar(&forceIntent, "intent", "", "force a report intent instead of classifying")
	rootCmd.Flags().StringVar(&forceSince, "since", "", "forced start date expression (with --intent)")
	rootCmd.Flags().StringVar(&forceUntil, "until", "", "forced end date expression (with --intent)")
	rootCmd.Flags().BoolVar(&outputJSON, "json", false, "print the response as JSON")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline steps to stderr")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" && forceIntent == "" {
		return fmt.Errorf("a question or --intent is required")
	}
	if shopDomain == "" || token == "" {
		return fmt.Errorf("--shop and --token (or SHOPIFY_SHOP_DOMAIN / SHOPIFY_ACCESS_TOKEN) are required")
	}

	cfg := config.LoadConfig()
	zl := zap.NewNop()
	if verbose {
		zl = logger.New(cfg.LogLevel, "console")
	}
	defer zl.Sync()

	components, err := server.BuildComponents(cfg, zl, server.Options{})
	if err != nil {
		return err
	}

	resp := components.Agent.Handle(cmd.Context(), models.Request{
		ShopDomain:  shopDomain,
		AccessToken: token,
		Question:    question,
		ForceIntent: forceIntent,
		ForceSince:  forceSince,
		ForceUntil:  forceUntil,
	})

	out := cmd.OutOrStdout()
	if outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(resp)
	}
	fmt.Fprintf(out, "%s\n\n(confidence: %s)\n", resp.Answer, resp.Confidence)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
