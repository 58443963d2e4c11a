package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"shop-analytics-api/pkg/models"
)

const (
	resultSheet  = "Result"
	summarySheet = "Summary"
)

var forecastHeader = []interface{}{"SKU", "Product", "Daily rate", "Forecast (30d)", "On hand", "Reorder qty"}

// ExportService は質問の結果をExcelファイルに書き出します。
type ExportService struct{}

// NewExportService 新しいExportServiceを生成
func NewExportService() *ExportService {
	return &ExportService{}
}

// WriteXLSX は結果をシート "Result"、質問と回答をシート "Summary" に書き出します。
// 発注予測の場合は発注が必要な品目と合計行を出力します。
func (es *ExportService) WriteXLSX(question string, res Resolution) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultSheet); err != nil {
		return nil, fmt.Errorf("シート名の設定に失敗: %w", err)
	}

	var err error
	if res.Forecast != nil && res.Forecast.Failure == nil {
		err = writeForecastSheet(f, *res.Forecast)
	} else {
		err = writeTableSheet(f, res.Columns, res.Rows)
	}
	if err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("シートの作成に失敗: %w", err)
	}
	summary := [][]interface{}{
		{"Question", question},
		{"Intent", res.Params.Intent},
		{"Since", res.Params.Since},
		{"Until", res.Params.Until},
		{"Query", res.Query},
		{"Answer", res.Response.Answer},
		{"Confidence", string(res.Response.Confidence)},
	}
	if err := writeRows(f, summarySheet, 1, summary); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("Excelファイルの書き出しに失敗: %w", err)
	}
	return buf, nil
}

func writeTableSheet(f *excelize.File, columns []models.Column, rows []models.NormalizedRow) error {
	names, headers := exportColumns(columns, rows)
	if len(names) == 0 {
		return nil
	}

	if err := writeRows(f, resultSheet, 1, [][]interface{}{headers}); err != nil {
		return err
	}
	for r, row := range rows {
		for c, name := range names {
			v, ok := row[name]
			if !ok || v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("セル位置の計算に失敗: %w", err)
			}
			if err := f.SetCellValue(resultSheet, cell, cellValue(v)); err != nil {
				return fmt.Errorf("セルの書き込みに失敗 (%s): %w", cell, err)
			}
		}
	}
	return nil
}

// cellValue は json.Number を数値セルとして書けるよう整数または実数に変換します。
func cellValue(v interface{}) interface{} {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// exportColumns は列メタデータの順序を優先し、メタデータにないキーを名前順で後ろに足します。
func exportColumns(columns []models.Column, rows []models.NormalizedRow) ([]string, []interface{}) {
	seen := make(map[string]bool, len(columns))
	var names []string
	var headers []interface{}
	for _, c := range columns {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		names = append(names, c.Name)
		if c.DisplayName != "" {
			headers = append(headers, c.DisplayName)
		} else {
			headers = append(headers, c.Name)
		}
	}

	var extra []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		names = append(names, k)
		headers = append(headers, k)
	}
	return names, headers
}

func writeForecastSheet(f *excelize.File, report ForecastReport) error {
	out := make([][]interface{}, 0, len(report.Lines)+2)
	out = append(out, forecastHeader)
	for _, l := range report.Lines {
		out = append(out, []interface{}{l.SKU, l.Title, l.DailyRate, l.Forecast30d, l.OnHand, l.ReorderQty})
	}
	out = append(out, []interface{}{"TOTAL", "", "", report.Totals.Forecast30d, report.Totals.OnHand, report.Totals.ReorderQty})
	return writeRows(f, resultSheet, 1, out)
}

func writeRows(f *excelize.File, sheet string, startRow int, rows [][]interface{}) error {
	for i, values := range rows {
		cell, err := excelize.CoordinatesToCellName(1, startRow+i)
		if err != nil {
			return fmt.Errorf("セル位置の計算に失敗: %w", err)
		}
		row := values
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("行の書き込みに失敗 (%s!%s): %w", sheet, cell, err)
		}
	}
	return nil
}
