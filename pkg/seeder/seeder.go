package seeder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"shop-analytics-api/pkg/logger"
)

// RESTPoster はShopify Admin REST APIへのPOSTを行います。
type RESTPoster interface {
	PostREST(ctx context.Context, shopDomain, accessToken, resource string, payload interface{}) ([]byte, int, error)
}

var errRateLimited = errors.New("rate limited (429)")

// Options はシーダーの動作設定です。
type Options struct {
	// Backoff 429・通信エラー時の固定待機時間
	Backoff time.Duration
	// Pause 各リクエスト後の待機時間
	Pause time.Duration
	// MaxAttempts 1リクエストあたりの最大試行回数
	MaxAttempts uint
	// Seed 乱数シード（0なら現在時刻）
	Seed int64
}

// DefaultOptions デモストア作成用の既定値
func DefaultOptions() Options {
	return Options{Backoff: 10 * time.Second, Pause: 600 * time.Millisecond, MaxAttempts: 30}
}

// MockOrderOptions 単発の模擬注文用の既定値
func MockOrderOptions() Options {
	return Options{Backoff: 15 * time.Second, Pause: 2 * time.Second, MaxAttempts: 30}
}

// Customer 作成済みの顧客
type Customer struct {
	FirstName string
	LastName  string
	Email     string
}

// Seeder はデモ用の顧客・商品・注文をストアに作成します。
type Seeder struct {
	client     RESTPoster
	shopDomain string
	token      string
	opts       Options
	rng        *rand.Rand
	now        func() time.Time
	logger     *zap.Logger
}

// New 新しいSeederを生成
func New(client RESTPoster, shopDomain, token string, opts Options, l *zap.Logger) *Seeder {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 1
	}
	return &Seeder{
		client:     client,
		shopDomain: shopDomain,
		token:      token,
		opts:       opts,
		rng:        rand.New(rand.NewSource(seed)),
		now:        time.Now,
		logger:     logger.OrNop(l),
	}
}

// post はリクエストを送信し、429と通信エラーは固定間隔で再試行します。
func (s *Seeder) post(ctx context.Context, resource string, payload interface{}) ([]byte, int, error) {
	var body []byte
	var status int

	err := retry.Do(
		func() error {
			b, code, err := s.client.PostREST(ctx, s.shopDomain, s.token, resource, payload)
			if err != nil {
				return err
			}
			if code == http.StatusTooManyRequests {
				return errRateLimited
			}
			body, status = b, code
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(s.opts.MaxAttempts),
		retry.Delay(s.opts.Backoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("⏳ 再試行します", zap.String("resource", resource), zap.Uint("attempt", n+1), zap.Duration("wait", s.opts.Backoff), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("%s へのPOSTに失敗: %w", resource, err)
	}

	s.sleep(ctx, s.opts.Pause)
	return body, status, nil
}

func (s *Seeder) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

var (
	firstNames = []string{"James", "Mary", "John", "Patricia", "Robert", "Jennifer", "Michael", "Linda", "William", "Elizabeth", "David", "Barbara", "Richard", "Susan", "Joseph", "Jessica", "Thomas", "Sarah", "Charles", "Karen"}
	lastNames  = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez"}
	adjectives = []string{"Premium", "Eco-friendly", "Wireless", "Smart", "Vintage", "Heavy-duty", "Lightweight", "Portable", "Digital", "Automatic"}
	nouns      = []string{"Watch", "Lamp", "Desk", "Chair", "Headphones", "Keyboard", "Mouse", "Monitor", "Backpack", "Wallet", "t-shirt", "Shoes", "Socks", "Hat", "Sunglasses"}
)

func (s *Seeder) pick(list []string) string {
	return list[s.rng.Intn(len(list))]
}

// between は [lo, hi] の整数を返す
func (s *Seeder) between(lo, hi int) int {
	return lo + s.rng.Intn(hi-lo+1)
}

// CreateCustomers は顧客を作成します。既存メールなどで失敗した顧客は読み飛ばします。
func (s *Seeder) CreateCustomers(ctx context.Context, n int) ([]Customer, error) {
	s.logger.Info("👥 顧客を作成", zap.Int("count", n))
	customers := make([]Customer, 0, n)

	for i := 0; i < n; i++ {
		first, last := s.pick(firstNames), s.pick(lastNames)
		email := fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), s.between(100, 999))

		payload := map[string]interface{}{
			"customer": map[string]interface{}{
				"first_name":     first,
				"last_name":      last,
				"email":          email,
				"verified_email": true,
				"addresses": []map[string]string{{
					"address1": "123 Mock St",
					"city":     "New York",
					"province": "NY",
					"zip":      "10001",
					"country":  "US",
				}},
			},
		}

		body, status, err := s.post(ctx, "customers.json", payload)
		if err != nil {
			return customers, err
		}
		if status != http.StatusCreated {
			s.logger.Warn("⚠️ 顧客を作成できませんでした（既存の可能性）", zap.Int("status", status))
			continue
		}

		created := gjson.GetBytes(body, "customer")
		customers = append(customers, Customer{
			FirstName: created.Get("first_name").String(),
			LastName:  created.Get("last_name").String(),
			Email:     created.Get("email").String(),
		})
		s.logger.Info("✅ 顧客を作成", zap.String("name", first+" "+last))
	}
	return customers, nil
}

// CreateProducts はSKUと在庫数を持つ商品を作成し、作成したバリアントIDを返します。
func (s *Seeder) CreateProducts(ctx context.Context, n int) ([]int64, error) {
	s.logger.Info("📦 商品を作成", zap.Int("count", n))
	variantIDs := make([]int64, 0, n)

	for i := 0; i < n; i++ {
		title := s.pick(adjectives) + " " + s.pick(nouns)
		price := s.between(10, 200)

		payload := map[string]interface{}{
			"product": map[string]interface{}{
				"title":        title,
				"body_html":    fmt.Sprintf("<strong>%s</strong> is the best on the market.", title),
				"vendor":       "AutoShopAI",
				"product_type": "Mock Data",
				"variants": []map[string]interface{}{{
					"price":                strconv.Itoa(price),
					"sku":                  fmt.Sprintf("SKU-%d", s.between(10000, 99999)),
					"inventory_management": "shopify",
					"inventory_quantity":   s.between(0, 100),
				}},
			},
		}

		body, status, err := s.post(ctx, "products.json", payload)
		if err != nil {
			return variantIDs, err
		}
		if status != http.StatusCreated {
			s.logger.Warn("❌ 商品の作成に失敗", zap.String("title", title), zap.Int("status", status), zap.ByteString("body", body))
			continue
		}

		variantIDs = append(variantIDs, gjson.GetBytes(body, "product.variants.0.id").Int())
		s.logger.Info("✅ 商品を作成", zap.String("title", title), zap.Int("price", price))
	}
	return variantIDs, nil
}

// CreateOrders は過去 days 日間に分散した注文を作成します（直近ほど多い）。
func (s *Seeder) CreateOrders(ctx context.Context, variantIDs []int64, customers []Customer, n, days int) (int, error) {
	if len(variantIDs) == 0 {
		return 0, errors.New("注文に使う商品がありません")
	}
	s.logger.Info("🛒 過去の注文を作成", zap.Int("count", n), zap.Int("days", days))

	created := 0
	today := s.now()
	for i := 0; i < n; i++ {
		orderDate := today.AddDate(0, 0, -s.recentWeightedDays(days)).Format(time.RFC3339)

		customer := Customer{FirstName: "Guest", LastName: "User", Email: fmt.Sprintf("guest%d@example.com", i)}
		if len(customers) > 0 {
			customer = customers[s.rng.Intn(len(customers))]
		}

		items := make([]map[string]interface{}, 0, 3)
		for j, count := 0, s.between(1, 3); j < count; j++ {
			items = append(items, map[string]interface{}{
				"variant_id": variantIDs[s.rng.Intn(len(variantIDs))],
				"quantity":   s.between(1, 2),
			})
		}

		payload := map[string]interface{}{
			"order": map[string]interface{}{
				"line_items": items,
				"customer": map[string]string{
					"first_name": customer.FirstName,
					"last_name":  customer.LastName,
					"email":      customer.Email,
				},
				"financial_status": "paid",
				"processed_at":     orderDate,
				"created_at":       orderDate,
				"currency":         "USD",
			},
		}

		body, status, err := s.post(ctx, "orders.json", payload)
		if err != nil {
			return created, err
		}
		if status != http.StatusCreated {
			s.logger.Warn("❌ 注文の作成に失敗", zap.Int("order", i+1), zap.Int("status", status), zap.ByteString("body", body))
			continue
		}
		created++
		s.logger.Info("✅ 注文を作成", zap.Int("order", i+1), zap.String("date", orderDate[:10]), zap.String("email", customer.Email))
	}
	return created, nil
}

// recentWeightedDays は 0..days の三角分布（最頻値0）から日数を引く
func (s *Seeder) recentWeightedDays(days int) int {
	u := s.rng.Float64()
	return int(float64(days) * (1 - math.Sqrt(1-u)))
}

// CreateMockOrders は商品に紐づかない単発の注文を作成します。
func (s *Seeder) CreateMockOrders(ctx context.Context, n int) (int, error) {
	s.logger.Info("🧾 模擬注文を作成", zap.Int("count", n), zap.String("shop", s.shopDomain))

	created := 0
	for i := 1; i <= n; i++ {
		price := math.Round((10+s.rng.Float64()*90)*100) / 100
		payload := map[string]interface{}{
			"order": map[string]interface{}{
				"line_items": []map[string]interface{}{{
					"title":    fmt.Sprintf("Mock Product %d", i),
					"price":    price,
					"quantity": 1,
				}},
				"financial_status": "paid",
				"total_price":      price,
			},
		}

		body, status, err := s.post(ctx, "orders.json", payload)
		if err != nil {
			return created, err
		}
		if status != http.StatusCreated {
			s.logger.Warn("❌ 模擬注文の作成に失敗", zap.Int("order", i), zap.Int("status", status), zap.ByteString("body", body))
			continue
		}
		created++
		s.logger.Info("✅ 模擬注文を作成", zap.Int("order", i), zap.Float64("price", price))
	}
	return created, nil
}
