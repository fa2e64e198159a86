package tableau

import "context"

// Host is the dashboard environment the assistant runs against. Production
// implementations talk to a Tableau server or a local workbook file; tests
// substitute fakes.
type Host interface {
	// Initialize performs the connection handshake and returns the dashboard
	// with its worksheets in host order.
	Initialize(ctx context.Context) (*Dashboard, error)

	// FetchSummary returns the summary table for one worksheet. It blocks
	// until the host has produced the data or the context is done.
	FetchSummary(ctx context.Context, worksheet string, opts SummaryOptions) (*SummaryTable, error)
}

type Dashboard struct {
	Name       string
	Worksheets []Worksheet
}

type Worksheet struct {
	Name string
}

// SummaryOptions controls a summary data request. IgnoreSelection false
// means the host applies its current selection/filter state; MaxRows bounds
// the payload size.
type SummaryOptions struct {
	IgnoreSelection bool
	MaxRows         int
}

type SummaryTable struct {
	Columns []Column
	Rows    [][]Cell
}

type Column struct {
	FieldName string
}

// Cell carries the raw value and, when the host has one, a display-ready
// formatted string. FormattedValue nil means only the raw value exists.
type Cell struct {
	Value          any
	FormattedValue *string
}
