package services

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"tableau-assistant/internal/models"
)

const noDataContext = "No Tableau data was provided for context. Answer the question generally."

// buildDataContext renders the worksheet snapshot into the prompt's data
// section: worksheet name, row and column counts, the column list, then the
// full data as CSV between delimiters. A nil snapshot yields the
// general-answer context. A snapshot that cannot be rendered degrades to a
// context naming only the columns.
func buildDataContext(data *models.WorksheetData) string {
	if data == nil {
		return noDataContext
	}

	csvText, err := renderCSV(data)
	if err != nil {
		return fmt.Sprintf(
			"Tableau data was provided but could not be processed into CSV: %v. "+
				"Answer the question generally based on the column names: %s.",
			err, strings.Join(data.Columns, ", "))
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("The user is viewing a Tableau worksheet named '%s'.\n", data.SheetName))
	b.WriteString(fmt.Sprintf("It contains %d rows and %d columns.\n", data.RowCount(), data.ColumnCount()))
	b.WriteString(fmt.Sprintf("Column names: %s.\n", strings.Join(data.Columns, ", ")))
	b.WriteString("The full raw data extracted from the current worksheet is provided below in CSV format. ")
	b.WriteString("Use this data to perform detailed analysis, comparisons, and calculations to answer the user's question.\n")
	b.WriteString("Ensure your analysis is precise and based strictly on the provided data.\n\n")
	b.WriteString("--- RAW DATA START ---\n")
	b.WriteString(csvText)
	b.WriteString("--- RAW DATA END ---\n")
	return b.String()
}

// buildPrompt layers the analyst role, the user question, and the data
// context into the final prompt.
func buildPrompt(question, dataContext string) string {
	var b strings.Builder

	b.WriteString("You are an expert data analyst AI assistant embedded in a Tableau dashboard. ")
	b.WriteString("You have received the raw data from the user's current worksheet in CSV format. ")
	b.WriteString("Perform the necessary calculations and analysis based on the provided data context. ")
	b.WriteString("Answer the user's question clearly, precisely, and maintain a professional, analytic tone.\n\n")

	b.WriteString("User question:\n")
	b.WriteString(question)
	b.WriteString("\n\n")

	b.WriteString("Tableau data context:\n")
	b.WriteString(dataContext)

	return b.String()
}

func renderCSV(data *models.WorksheetData) (string, error) {
	for i, row := range data.Rows {
		if len(row) != len(data.Columns) {
			return "", fmt.Errorf("row %d has %d cells, expected %d", i, len(row), len(data.Columns))
		}
	}

	cells := make([][]string, len(data.Rows))
	for i, row := range data.Rows {
		cells[i] = make([]string, len(row))
		for j, v := range row {
			cells[i][j] = cellText(v)
		}
	}
	coerceNumericColumns(cells)

	var buf strings.Builder
	w := csv.NewWriter(&buf)
	if err := w.Write(data.Columns); err != nil {
		return "", err
	}
	for _, row := range cells {
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// coerceNumericColumns is the column-wise type coercion pass: when every
// non-empty cell in a column parses as a number the column is emitted in
// canonical numeric form, otherwise the column is left untouched.
func coerceNumericColumns(cells [][]string) {
	if len(cells) == 0 {
		return
	}

	for c := 0; c < len(cells[0]); c++ {
		numeric := false
		for r := range cells {
			s := strings.TrimSpace(cells[r][c])
			if s == "" {
				continue
			}
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				numeric = false
				break
			}
			numeric = true
		}
		if !numeric {
			continue
		}

		for r := range cells {
			s := strings.TrimSpace(cells[r][c])
			if s == "" {
				cells[r][c] = ""
				continue
			}
			f, _ := strconv.ParseFloat(s, 64)
			cells[r][c] = strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
}
