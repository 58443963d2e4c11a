package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	config "shop-analytics-api/configs"
	"shop-analytics-api/pkg/logger"
	"shop-analytics-api/pkg/seeder"
	"shop-analytics-api/pkg/shopify"
)

var (
	shopDomain string
	token      string
	apiVersion string
	seed       int64

	customerCount int
	productCount  int
	orderCount    int
	historyDays   int

	mockOrderCount int
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a development store with demo data",
	Long: `Create customers, products (with SKUs and tracked inventory) and historical
orders in a Shopify development store so that ShopifyQL reports have data.

Requests that hit the Admin API rate limit (HTTP 429) are retried with a fixed backoff.
Shopify Analytics can take several minutes to index new orders.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if shopDomain == "" || token == "" {
			return fmt.Errorf("--shop and --token (or SHOPIFY_SHOP_DOMAIN / SHOPIFY_ACCESS_TOKEN) are required")
		}
		return nil
	},
	RunE: runSeedStore,
}

var mockOrdersCmd = &cobra.Command{
	Use:   "mock-orders",
	Short: "Create simple paid orders without product references",
	RunE:  runMockOrders,
}

func init() {
	_ = godotenv.Load()
	cfg := config.LoadConfig()

	rootCmd.PersistentFlags().StringVar(&shopDomain, "shop", os.Getenv("SHOPIFY_SHOP_DOMAIN"), "shop domain (e.g. demo.myshopify.com)")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("SHOPIFY_ACCESS_TOKEN"), "Admin API access token")
	rootCmd.PersistentFlags().StringVar(&apiVersion, "api-version", cfg.ShopifyAPIVersion, "Admin API version")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "random seed (0 = time based)")

	rootCmd.Flags().IntVar(&customerCount, "customers", 20, "number of customers to create")
	rootCmd.Flags().IntVar(&productCount, "products", 15, "number of products to create")
	rootCmd.Flags().IntVar(&orderCount, "orders", 50, "number of historical orders to create")
	rootCmd.Flags().IntVar(&historyDays, "days", 180, "spread orders over this many past days")

	mockOrdersCmd.Flags().IntVar(&mockOrderCount, "count", 10, "number of mock orders to create")
	rootCmd.AddCommand(mockOrdersCmd)
}

func newSeeder(opts seeder.Options) (*seeder.Seeder, *zap.Logger) {
	cfg := config.LoadConfig()
	zl := logger.New(cfg.LogLevel, cfg.LogFormat)
	client := shopify.NewClient(apiVersion, time.Duration(cfg.ShopifyTimeoutSeconds)*time.Second)
	opts.Seed = seed
	return seeder.New(client, shopDomain, token, opts, zl), zl
}

func runSeedStore(cmd *cobra.Command, args []string) error {
	s, zl := newSeeder(seeder.DefaultOptions())
	defer zl.Sync()
	ctx := cmd.Context()

	zl.Info("🚀 ストアへのデータ投入を開始", zap.String("shop", shopDomain))

	customers, err := s.CreateCustomers(ctx, customerCount)
	if err != nil {
		return err
	}
	variants, err := s.CreateProducts(ctx, productCount)
	if err != nil {
		return err
	}
	if len(variants) == 0 {
		return fmt.Errorf("no products were created; cannot create orders")
	}
	created, err := s.CreateOrders(ctx, variants, customers, orderCount, historyDays)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n🎉 Seeded %d customers, %d products, %d orders. Wait 5-10 mins for Shopify Analytics to index.\n",
		len(customers), len(variants), created)
	return nil
}

func runMockOrders(cmd *cobra.Command, args []string) error {
	s, zl := newSeeder(seeder.MockOrderOptions())
	defer zl.Sync()

	created, err := s.CreateMockOrders(cmd.Context(), mockOrderCount)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nDone! Created %d mock orders. Wait about 1-2 minutes for Shopify Analytics to update.\n", created)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
