package imports

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/impactguard/impactguard/pkg/models"
)

// Kind describes the shape of a parsed document.
type Kind string

const (
	KindRecord Kind = "record"
	KindTable  Kind = "table"
	KindText   Kind = "text"
)

// Table is a parsed tabular dataset: a header row plus data rows.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns all values of the named column.
func (t *Table) Column(name string) ([]string, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("no such column: %s", name)
	}
	values := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx < len(row) {
			values = append(values, row[idx])
		}
	}
	return values, nil
}

// Document is the result of importing one file. Exactly one of Record, Table
// or Text is populated on success; Error is set instead of failing the caller
// so a bad upload never takes the session down with it.
type Document struct {
	Kind   Kind           `json:"kind,omitempty"`
	Record map[string]any `json:"record,omitempty"`
	Table  *Table         `json:"table,omitempty"`
	Text   string         `json:"text,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Parse converts an uploaded file into a Document based on its extension.
func Parse(filename string, data []byte) *Document {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	switch ext {
	case "json":
		return parseJSON(data)
	case "csv":
		return parseCSV(data)
	case "xlsx":
		return parseExcel(data)
	case "xls":
		return parseXLS(data)
	case "pdf":
		return parsePDF(data)
	case "xml":
		return parseXML(data)
	case "yaml", "yml":
		return parseYAML(data)
	default:
		return &Document{Error: fmt.Sprintf("Unsupported file format: %s", ext)}
	}
}

func parseJSON(data []byte) *Document {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return &Document{Error: fmt.Sprintf("Failed to process file: %v", err)}
	}
	if m, ok := v.(map[string]any); ok {
		return &Document{Kind: KindRecord, Record: m}
	}
	return &Document{Kind: KindRecord, Record: map[string]any{"data": v}}
}

func parseCSV(data []byte) *Document {
	table, err := readCSV(data)
	if err != nil {
		return &Document{Error: fmt.Sprintf("Failed to process file: %v", err)}
	}
	return &Document{Kind: KindTable, Table: table}
}

func readCSV(data []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty CSV file")
	}
	return &Table{Columns: records[0], Rows: records[1:]}, nil
}

func parseExcel(data []byte) *Document {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return &Document{Error: fmt.Sprintf("Failed to process file: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Document{Error: "Failed to process file: workbook has no sheets"}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return &Document{Error: fmt.Sprintf("Failed to process file: %v", err)}
	}
	if len(rows) == 0 {
		return &Document{Error: "Failed to process file: empty worksheet"}
	}

	return &Document{Kind: KindTable, Table: &Table{Columns: rows[0], Rows: rows[1:]}}
}

// parseXLS reads legacy BIFF workbooks, which excelize does not handle.
func parseXLS(data []byte) *Document {
	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return &Document{Error: fmt.Sprintf("Failed to process file: %v", err)}
	}

	sh, err := wb.GetSheet(0)
	if err != nil {
		return &Document{Error: fmt.Sprintf("Failed to process file: %v", err)}
	}

	var rows [][]string
	for i := 0; i < sh.GetNumberRows(); i++ {
		r, err := sh.GetRow(i)
		if err != nil {
			continue
		}
		cols := r.GetCols()
		cells := make([]string, 0, len(cols))
		for _, cell := range cols {
			cells = append(cells, cell.GetString())
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return &Document{Error: "Failed to process file: empty worksheet"}
	}

	return &Document{Kind: KindTable, Table: &Table{Columns: rows[0], Rows: rows[1:]}}
}

func parsePDF(data []byte) *Document {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return &Document{Error: fmt.Sprintf("Failed to process file: %v", err)}
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return &Document{Error: fmt.Sprintf("Failed to process file: %v", err)}
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return &Document{Error: fmt.Sprintf("Failed to process file: %v", err)}
	}
	return &Document{Kind: KindText, Text: buf.String()}
}

func parseXML(data []byte) *Document {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := decoder.Token()
		if err != nil {
			return &Document{Error: fmt.Sprintf("Failed to process file: %v", err)}
		}
		if start, ok := tok.(xml.StartElement); ok {
			v, err := decodeXMLElement(decoder, start)
			if err != nil {
				return &Document{Error: fmt.Sprintf("Failed to process file: %v", err)}
			}
			if m, ok := v.(map[string]any); ok {
				return &Document{Kind: KindRecord, Record: m}
			}
			return &Document{Kind: KindText, Text: fmt.Sprint(v)}
		}
	}
}

// decodeXMLElement converts one element into a map of its children. Repeated
// child tags collapse into a list; leaf elements become their trimmed text.
func decodeXMLElement(decoder *xml.Decoder, start xml.StartElement) (any, error) {
	result := make(map[string]any)
	var text strings.Builder

	for {
		tok, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeXMLElement(decoder, t)
			if err != nil {
				return nil, err
			}
			if existing, ok := result[t.Name.Local]; ok {
				if list, ok := existing.([]any); ok {
					result[t.Name.Local] = append(list, child)
				} else {
					result[t.Name.Local] = []any{existing, child}
				}
			} else {
				result[t.Name.Local] = child
			}
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(result) == 0 {
				return strings.TrimSpace(text.String()), nil
			}
			return result, nil
		}
	}
}

func parseYAML(data []byte) *Document {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return &Document{Error: fmt.Sprintf("Failed to process file: %v", err)}
	}
	return &Document{Kind: KindRecord, Record: m}
}

// ParseInsightCSV reads a prompt/response dataset. The file must carry the
// User, Category, Prompt and Response columns.
func ParseInsightCSV(data []byte) ([]models.Insight, error) {
	table, err := readCSV(data)
	if err != nil {
		return nil, err
	}

	required := []string{"User", "Category", "Prompt", "Response"}
	indexes := make(map[string]int, len(required))
	maxIdx := 0
	for _, col := range required {
		idx := table.ColumnIndex(col)
		if idx < 0 {
			return nil, fmt.Errorf("required columns: %v", required)
		}
		indexes[col] = idx
		if idx > maxIdx {
			maxIdx = idx
		}
	}

	insights := make([]models.Insight, 0, len(table.Rows))
	for _, row := range table.Rows {
		if len(row) <= maxIdx {
			continue
		}
		insights = append(insights, models.Insight{
			User:     row[indexes["User"]],
			Category: row[indexes["Category"]],
			Prompt:   row[indexes["Prompt"]],
			Response: row[indexes["Response"]],
		})
	}
	return insights, nil
}
