// Package domain holds the concrete per-type plugins the job pipeline
// dispatches to: report row producers and sheet-row entity creators. The
// wider application registers more of these the same way.
package domain

import (
	"context"
	"fmt"

	"github.com/diegohenriquecode/employees-service-sub002/internal/database"
	"github.com/diegohenriquecode/employees-service-sub002/internal/models"
	"github.com/diegohenriquecode/employees-service-sub002/internal/services"
)

// feedbackRow is a row of the Feedbacks table as the report reads it.
type feedbackRow struct {
	Account   string `dynamodbav:"account"`
	ID        string `dynamodbav:"id"`
	Employee  string `dynamodbav:"employee"`
	Sector    string `dynamodbav:"sector"`
	Type      string `dynamodbav:"type"`
	Date      string `dynamodbav:"date"`
	Text      string `dynamodbav:"text"`
	CreatedBy string `dynamodbav:"created_by"`
}

// NewFeedbackGenerator produces the rows of the feedback report. The query
// may narrow by sector.
func NewFeedbackGenerator(store *database.Store, table string) services.GeneratorFunc {
	return func(ctx context.Context, query map[string]any, account *models.Account) ([]models.ReportRow, error) {
		var rows []feedbackRow
		if err := store.QueryByAccount(ctx, table, account.ID, &rows); err != nil {
			return nil, fmt.Errorf("failed to load feedbacks: %w", err)
		}

		sector, _ := query["sector"].(string)
		out := make([]models.ReportRow, 0, len(rows))
		for _, row := range rows {
			if sector != "" && row.Sector != sector {
				continue
			}
			out = append(out, models.ReportRow{
				{Column: "Employee", Value: row.Employee},
				{Column: "Sector", Value: row.Sector},
				{Column: "Type", Value: row.Type},
				{Column: "Date", Value: row.Date},
				{Column: "Text", Value: row.Text},
				{Column: "Author", Value: row.CreatedBy},
			})
		}
		return out, nil
	}
}
