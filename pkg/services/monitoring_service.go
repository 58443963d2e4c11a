package services

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shop-analytics-api/pkg/metrics"
)

// ginコンテキストのキー
const (
	ContextKeyRequestID  = "request_id"
	ContextKeyIntent     = "intent"
	ContextKeyConfidence = "confidence"
	ContextKeyOutcome    = "outcome"

	// RequestIDHeader レスポンスに付与するリクエストIDのヘッダー
	RequestIDHeader = "X-Request-ID"

	// maxLogEntries 保持するログの上限。超えた分は古い順に捨てる
	maxLogEntries = 10000
)

// LogEntry は単一のリクエストログを表します。
type LogEntry struct {
	RequestID    string        `json:"requestId"`
	Timestamp    time.Time     `json:"timestamp"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"statusCode"`
	ResponseTime time.Duration `json:"responseTime"`
	Intent       string        `json:"intent,omitempty"`
	Confidence   string        `json:"confidence,omitempty"`
	Outcome      string        `json:"outcome,omitempty"`
}

// MonitoringService はAPIのモニタリング機能を提供します。
type MonitoringService struct {
	logs     []LogEntry
	mu       sync.RWMutex
	location *time.Location
	now      func() time.Time
}

// NewMonitoringService は新しいMonitoringServiceを生成します。
// timezone はダッシュボードの時間帯バケットに使うIANA名です（不正ならUTC）。
func NewMonitoringService(timezone string) *MonitoringService {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc = time.UTC
	}
	return &MonitoringService{
		logs:     make([]LogEntry, 0),
		location: loc,
		now:      time.Now,
	}
}

// LogRequest はリクエストを記録します。
func (s *MonitoringService) LogRequest(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	if over := len(s.logs) - maxLogEntries; over > 0 {
		s.logs = append(s.logs[:0:0], s.logs[over:]...)
	}
}

// RecordResolution は質問の処理結果をリクエストに紐づけ、メトリクスに反映します。
func RecordResolution(c *gin.Context, res Resolution) {
	c.Set(ContextKeyIntent, res.Params.Intent)
	c.Set(ContextKeyConfidence, string(res.Response.Confidence))
	c.Set(ContextKeyOutcome, res.Outcome.String())
	metrics.ObserveQuestion(res.Params.Intent, string(res.Path), string(res.Response.Confidence), res.Duration)
}

// LoggingMiddleware はリクエストIDを払い出し、リクエスト情報を記録するGinミドルウェアです。
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, requestID)
		c.Header(RequestIDHeader, requestID)

		// 次のミドルウェア/ハンドラを実行
		c.Next()

		metrics.ObserveHTTP(c.FullPath(), c.Request.Method, c.Writer.Status())

		// 除外するパスプレフィックス
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/v1/monitoring") || path == "/metrics" || path == "/health" {
			return
		}

		s.LogRequest(LogEntry{
			RequestID:    requestID,
			Timestamp:    start,
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   c.Writer.Status(),
			ResponseTime: s.now().Sub(start),
			Intent:       c.GetString(ContextKeyIntent),
			Confidence:   c.GetString(ContextKeyConfidence),
			Outcome:      c.GetString(ContextKeyOutcome),
		})
	}
}

// DashboardData はダッシュボードに表示するための集計済みデータです。
type DashboardData struct {
	RequestsOverTime []map[string]interface{} `json:"requestsOverTime"`
	Endpoints        map[string]int           `json:"endpoints"`
	StatusCodes      []map[string]interface{} `json:"statusCodes"`
	AvgResponseTimes []map[string]interface{} `json:"avgResponseTimes"`
	Intents          map[string]int           `json:"intents"`
	Confidence       map[string]int           `json:"confidence"`
	Outcomes         map[string]int           `json:"outcomes"`
	RecentErrors     []LogEntry               `json:"recentErrors"`
}

var statusClasses = []string{"2xx Success", "4xx Client Error", "5xx Server Error"}

// hourBucket は現地時刻の「時」の先頭に切り捨てます。
// Truncate は絶対時刻基準のため、30分ずれのタイムゾーンでは使えません。
func hourBucket(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
}

// GetDashboardData は指定された期間のログを集計してダッシュボード用データを返します。
func (s *MonitoringService) GetDashboardData(periodHours int) DashboardData {
	if periodHours <= 0 {
		periodHours = 24
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now().In(s.location)
	since := now.Add(-time.Duration(periodHours) * time.Hour)

	filtered := make([]LogEntry, 0)
	for _, entry := range s.logs {
		if entry.Timestamp.After(since) {
			filtered = append(filtered, entry)
		}
	}

	// 時間帯バケット（過去→現在の順）
	requestsOverTime := make([]map[string]interface{}, periodHours)
	bucketIndex := make(map[string]int, periodHours)
	for i := 0; i < periodHours; i++ {
		target := hourBucket(now.Add(-time.Duration(periodHours-1-i)*time.Hour), s.location)
		bucketIndex[target.Format(time.RFC3339)] = i
		requestsOverTime[i] = map[string]interface{}{"time": target.Format("15:00"), "requests": 0}
	}

	endpoints := make(map[string]int)
	statusCounts := make(map[string]int, len(statusClasses))
	for _, name := range statusClasses {
		statusCounts[name] = 0
	}
	intents := make(map[string]int)
	confidence := make(map[string]int)
	outcomes := make(map[string]int)
	responseTimeSum := make(map[string]time.Duration)

	for _, entry := range filtered {
		key := hourBucket(entry.Timestamp, s.location).Format(time.RFC3339)
		if i, ok := bucketIndex[key]; ok {
			requestsOverTime[i]["requests"] = requestsOverTime[i]["requests"].(int) + 1
		}

		endpoints[entry.Path]++
		responseTimeSum[entry.Path] += entry.ResponseTime

		switch {
		case entry.StatusCode >= 200 && entry.StatusCode < 300:
			statusCounts["2xx Success"]++
		case entry.StatusCode >= 400 && entry.StatusCode < 500:
			statusCounts["4xx Client Error"]++
		case entry.StatusCode >= 500:
			statusCounts["5xx Server Error"]++
		}

		if entry.Intent != "" {
			intents[entry.Intent]++
		}
		if entry.Confidence != "" {
			confidence[entry.Confidence]++
		}
		if entry.Outcome != "" {
			outcomes[entry.Outcome]++
		}
	}

	statusCodes := make([]map[string]interface{}, 0, len(statusClasses))
	for _, name := range statusClasses {
		statusCodes = append(statusCodes, map[string]interface{}{"name": name, "value": statusCounts[name]})
	}

	paths := make([]string, 0, len(responseTimeSum))
	for path := range responseTimeSum {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	avgResponseTimes := make([]map[string]interface{}, 0, len(paths))
	for _, path := range paths {
		avg := responseTimeSum[path].Milliseconds() / int64(endpoints[path])
		avgResponseTimes = append(avgResponseTimes, map[string]interface{}{"endpoint": path, "responseTime": avg})
	}

	// 直近のエラー（新しい順に最大10件）。Shopify・AIのエラー応答も含める
	recentErrors := make([]LogEntry, 0)
	for i := len(filtered) - 1; i >= 0 && len(recentErrors) < 10; i-- {
		entry := filtered[i]
		if entry.StatusCode >= 500 || (entry.Outcome != "" && entry.Outcome != OutcomeTable.String()) {
			recentErrors = append(recentErrors, entry)
		}
	}

	return DashboardData{
		RequestsOverTime: requestsOverTime,
		Endpoints:        endpoints,
		StatusCodes:      statusCodes,
		AvgResponseTimes: avgResponseTimes,
		Intents:          intents,
		Confidence:       confidence,
		Outcomes:         outcomes,
		RecentErrors:     recentErrors,
	}
}
