package services

import (
	"bytes"
	"encoding/json"
	"fmt"

	"shop-analytics-api/pkg/models"
)

// rowKind ShopifyQLの行エンコーディングの種類
type rowKind int

const (
	rowObject rowKind = iota // {"col": value, ...}
	rowArray                 // [value, value, ...]
	rowScalar                // value（旧形式の単一列）
)

// tableRow は正規化前の行。デコード時に一度だけ種類を判定する
type tableRow struct {
	kind   rowKind
	object map[string]interface{}
	array  []interface{}
	scalar interface{}
}

func decodeRow(raw json.RawMessage) (tableRow, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return tableRow{}, false
	}

	switch trimmed[0] {
	case '{':
		var obj map[string]interface{}
		if err := decodeJSON(trimmed, &obj); err != nil {
			return tableRow{}, false
		}
		return tableRow{kind: rowObject, object: obj}, true
	case '[':
		var arr []interface{}
		if err := decodeJSON(trimmed, &arr); err != nil {
			return tableRow{}, false
		}
		return tableRow{kind: rowArray, array: arr}, true
	default:
		var v interface{}
		if err := decodeJSON(trimmed, &v); err != nil {
			return tableRow{}, false
		}
		return tableRow{kind: rowScalar, scalar: v}, true
	}
}

// decodeJSON は数値を json.Number のまま保持してデコードします（桁落ち・指数表記を避ける）。
func decodeJSON(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("行の後に余分なデータがあります")
	}
	return nil
}

// ColumnNames 列メタデータから列名の順序を取り出す
func ColumnNames(columns []models.Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

// NormalizeTable はShopifyQLのtableDataを 列名→値 の行の並びに変換します。
// オブジェクト行はそのまま、配列行は列名と突き合わせ（列数を超える値は捨てる）、
// スカラー行は先頭列に割り当てます（列がなければ捨てる）。純粋関数です。
func NormalizeTable(table models.TableResult) []models.NormalizedRow {
	cols := ColumnNames(table.Columns)
	out := make([]models.NormalizedRow, 0, len(table.Rows))

	for _, raw := range table.Rows {
		row, ok := decodeRow(raw)
		if !ok {
			continue
		}

		switch row.kind {
		case rowObject:
			out = append(out, models.NormalizedRow(row.object))
		case rowArray:
			obj := make(models.NormalizedRow, len(cols))
			for i, v := range row.array {
				if i >= len(cols) {
					break
				}
				obj[cols[i]] = v
			}
			out = append(out, obj)
		case rowScalar:
			if len(cols) == 0 {
				continue
			}
			out = append(out, models.NormalizedRow{cols[0]: row.scalar})
		}
	}
	return out
}
