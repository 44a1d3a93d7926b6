package tagdb

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Column layout shared by the CSV and XLSX exchange formats. Array tags are
// flattened: one definition row carrying the dimensions, then one row per
// element named "Tag[i][j]".
var exchangeHeader = []string{"TagName", "DataType", "Comment", "InitialValue", "ArrayDims", "Length"}

var elementNameRe = regexp.MustCompile(`^(.+?)((?:\[\d+\])+)$`)
var indexRe = regexp.MustCompile(`\[(\d+)\]`)

// tagRows renders a database's tags into exchange rows, header excluded.
func tagRows(db *Database) [][]string {
	var rows [][]string
	for _, t := range db.Tags {
		if len(t.ArrayDims) > 0 {
			dims := make([]string, len(t.ArrayDims))
			for i, d := range t.ArrayDims {
				dims[i] = strconv.Itoa(d)
			}
			rows = append(rows, []string{t.Name, t.DataType, t.Comment, "", strings.Join(dims, "x"), strconv.Itoa(t.Length)})
			rows = appendElementRows(rows, t, t.Value, "")
		} else {
			rows = append(rows, []string{t.Name, t.DataType, t.Comment, formatValue(t.Value), "", strconv.Itoa(t.Length)})
		}
	}
	return rows
}

func appendElementRows(rows [][]string, t *Tag, value any, indexSuffix string) [][]string {
	arr, ok := value.([]any)
	if !ok {
		return append(rows, []string{t.Name + indexSuffix, t.DataType, t.Comment, formatValue(value), "", strconv.Itoa(t.Length)})
	}
	for i, elem := range arr {
		rows = appendElementRows(rows, t, elem, fmt.Sprintf("%s[%d]", indexSuffix, i))
	}
	return rows
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// parseValue converts an exchange cell back into a typed value.
func parseValue(s, dataType string) any {
	switch dataType {
	case TypeBool:
		lower := strings.ToLower(strings.TrimSpace(s))
		return lower == "true" || lower == "1"
	case TypeInt, TypeDint:
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return float64(0)
		}
		return float64(n)
	case TypeReal:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return float64(0)
		}
		return f
	default:
		return s
	}
}

// rowsToTags reconstructs tags from exchange rows, header excluded. Element
// rows must follow their array's definition row.
func rowsToTags(rows [][]string) ([]*Tag, error) {
	byName := map[string]*Tag{}
	var order []string
	for i, row := range rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		for len(row) < len(exchangeHeader) {
			row = append(row, "")
		}
		name, dataType, comment, value, dimsStr, lengthStr := row[0], row[1], row[2], row[3], row[4], row[5]

		if m := elementNameRe.FindStringSubmatch(name); m != nil {
			base := m[1]
			t, ok := byName[base]
			if ok {
				var indices []int
				for _, im := range indexRe.FindAllStringSubmatch(m[2], -1) {
					n, _ := strconv.Atoi(im[1])
					indices = append(indices, n)
				}
				if !t.SetElement(indices, parseValue(value, t.DataType)) {
					return nil, fmt.Errorf("row %d: element %q out of range", i+2, name)
				}
				continue
			}
			// no matching array definition; treat as a plain tag name
		}

		length := 0
		if lengthStr != "" {
			n, err := strconv.Atoi(strings.TrimSpace(lengthStr))
			if err != nil {
				return nil, fmt.Errorf("row %d: bad length %q", i+2, lengthStr)
			}
			length = n
		}
		if dataType == "" {
			dataType = TypeInt
		}
		t := &Tag{Name: name, DataType: dataType, Comment: comment, Length: length}
		if dimsStr != "" {
			var dims []int
			for _, part := range strings.Split(dimsStr, "x") {
				n, err := strconv.Atoi(strings.TrimSpace(part))
				if err != nil {
					return nil, fmt.Errorf("row %d: bad array dims %q", i+2, dimsStr)
				}
				dims = append(dims, n)
			}
			t.ArrayDims = dims
			t.Value = DefaultValue(dims, dataType)
		} else {
			t.Value = parseValue(value, dataType)
		}
		byName[name] = t
		order = append(order, name)
	}
	tags := make([]*Tag, 0, len(order))
	for _, name := range order {
		tags = append(tags, byName[name])
	}
	return tags, nil
}
