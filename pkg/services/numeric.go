package services

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonNumericChars = regexp.MustCompile(`[^0-9.\-]`)

// ToNumber は任意のスカラー値をベストエフォートでfloat64に変換します。
// 真偽値は 1/0 とし、nil・空文字・数値として解釈できない文字列はすべて 0 になります。パニックしません。
func ToNumber(v interface{}) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case bool:
		if n {
			return 1
		}
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case json.Number:
		return parseNumericString(n.String())
	case string:
		return parseNumericString(n)
	}
	return 0
}

func parseNumericString(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = nonNumericChars.ReplaceAllString(s, "")
	switch s {
	case "", ".", "-", "-.":
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}
