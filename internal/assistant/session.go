package assistant

import (
	"context"
	"log"

	"tableau-assistant/internal/models"
	"tableau-assistant/internal/tableau"
)

// maxSummaryRows bounds the payload handed to the backend.
const maxSummaryRows = 1000

// Session is the connection to one dashboard. It is created once at startup
// by Connect and read by every later operation; a Session that failed to
// connect keeps working in a degraded mode where every lookup misses.
type Session struct {
	host tableau.Host
	dash *tableau.Dashboard
	log  *DebugLog
}

// Connect performs the host handshake. Connection problems are never fatal:
// a missing host environment or a failed handshake is logged and yields a
// disconnected Session, leaving the caller fully interactive.
func Connect(ctx context.Context, host tableau.Host, dlog *DebugLog) *Session {
	s := &Session{host: host, log: dlog}

	if host == nil {
		dlog.Debugf("Host environment unavailable, running disconnected")
		return s
	}

	dash, err := host.Initialize(ctx)
	if err != nil {
		log.Printf("Host initialization failed: %v", err)
		dlog.Debugf("Host initialization failed: %v", err)
		return s
	}

	s.dash = dash
	dlog.Debugf("Connected to dashboard %q (%d worksheets)", dash.Name, len(dash.Worksheets))
	if len(dash.Worksheets) == 0 {
		dlog.Debugf("Dashboard has no worksheets")
	}
	return s
}

func (s *Session) Connected() bool {
	return s.dash != nil
}

func (s *Session) DashboardName() string {
	if s.dash == nil {
		return ""
	}
	return s.dash.Name
}

// Worksheets returns the worksheet names in host order.
func (s *Session) Worksheets() []string {
	if s.dash == nil {
		return nil
	}
	names := make([]string, len(s.dash.Worksheets))
	for i, w := range s.dash.Worksheets {
		names[i] = w.Name
	}
	return names
}

// WorksheetData reads the summary table of one worksheet. A name that is
// not part of the dashboard yields (nil, nil) with a diagnostic; the caller
// must handle the nil. Host fetch failures propagate untouched.
func (s *Session) WorksheetData(ctx context.Context, name string) (*models.WorksheetData, error) {
	if !s.lookup(name) {
		s.log.Debugf("Worksheet %q not found", name)
		return nil, nil
	}

	table, err := s.host.FetchSummary(ctx, name, tableau.SummaryOptions{
		IgnoreSelection: false,
		MaxRows:         maxSummaryRows,
	})
	if err != nil {
		return nil, err
	}

	data := &models.WorksheetData{SheetName: name}
	for _, col := range table.Columns {
		data.Columns = append(data.Columns, col.FieldName)
	}

	width := len(data.Columns)
	for _, row := range table.Rows {
		cells := make([]any, width)
		for i := range cells {
			if i < len(row) {
				cells[i] = cellValue(row[i])
			} else {
				cells[i] = ""
			}
		}
		data.Rows = append(data.Rows, cells)
	}

	s.log.Debugf("Read worksheet %q: %d rows, %d columns", name, len(data.Rows), width)
	return data, nil
}

func (s *Session) lookup(name string) bool {
	if s.dash == nil {
		return false
	}
	for _, w := range s.dash.Worksheets {
		if w.Name == name {
			return true
		}
	}
	return false
}

// cellValue applies the display rule per cell: the formatted string when the
// host provides one, otherwise the raw value so numbers stay numbers.
func cellValue(c tableau.Cell) any {
	if c.FormattedValue != nil {
		return *c.FormattedValue
	}
	return c.Value
}
