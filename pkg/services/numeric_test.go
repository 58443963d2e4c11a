package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToNumber(t *testing.T) {
	testCases := []struct {
		name     string
		in       interface{}
		expected float64
	}{
		{"通貨記号と桁区切り", "$1,234.50", 1234.5},
		{"空文字", "", 0},
		{"nil", nil, 0},
		{"符号のみ", "-", 0},
		{"ドットのみ", ".", 0},
		{"符号とドット", "-.", 0},
		{"整数", 42, 42},
		{"int64", int64(7), 7},
		{"float32", float32(2.5), 2.5},
		{"float64", 3.25, 3.25},
		{"json.Number", json.Number("12.5"), 12.5},
		{"前後の空白", "  15 units ", 15},
		{"負数", "-3.5", -3.5},
		{"ルピー記号", "₹2,000", 2000},
		{"解析不能", "1.2.3", 0},
		{"途中の符号", "1-2", 0},
		{"文字のみ", "n/a", 0},
		{"真", true, 1},
		{"偽", false, 0},
		{"スライス", []int{1}, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ToNumber(tc.in))
		})
	}
}
