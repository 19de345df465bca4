package models

// ReportType discriminates which domain produces the rows of an export
type ReportType string

const (
	ReportTypeFeedback         ReportType = "feedback"
	ReportTypeDecisionMatrix   ReportType = "decision-matrix"
	ReportTypeTrainingProgress ReportType = "training-progress"
	ReportTypeAPE              ReportType = "ape"
	ReportTypeReprimand        ReportType = "reprimand"
	ReportTypeSuspension       ReportType = "suspension"
	ReportTypeCoachingRegister ReportType = "coaching-register"
	ReportTypeDismissInterview ReportType = "dismiss-interview"
	ReportTypeMultidirectional ReportType = "multidirectional"
)

// ReportCell is one column/value pair of a report row.
type ReportCell struct {
	Column string
	Value  any
}

// ReportRow is an ordered list of cells. Column order is significant: the
// spreadsheet header is taken from the first row of a report.
type ReportRow []ReportCell

// Columns returns the column names in cell order.
func (r ReportRow) Columns() []string {
	cols := make([]string, len(r))
	for i, c := range r {
		cols[i] = c.Column
	}
	return cols
}

// ReportRequest is the JSON payload stored in an export-reports task's data
// field.
type ReportRequest struct {
	Type  ReportType     `json:"type"`
	Query map[string]any `json:"query"`
}
