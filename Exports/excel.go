package Exports

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"ClinOps/DMBot"
	"ClinOps/Models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// sheet holds one worksheet worth of rows.
type sheet struct {
	name    string
	headers []string
	rows    [][]interface{}
}

func writeWorkbook(sheets ...sheet) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating header style: %w", err)
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return nil, fmt.Errorf("error creating sheet: %w", err)
		}

		for col, h := range s.headers {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			if err := f.SetCellValue(s.name, cell, h); err != nil {
				return nil, err
			}
		}
		if len(s.headers) > 0 {
			if err := f.SetRowStyle(s.name, 1, 1, headerStyle); err != nil {
				return nil, err
			}
			last, _ := excelize.ColumnNumberToName(len(s.headers))
			if err := f.SetColWidth(s.name, "A", last, 18); err != nil {
				return nil, err
			}
		}

		for r, values := range s.rows {
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			if err := f.SetSheetRow(s.name, cell, &values); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing workbook: %w", err)
	}
	return &buf, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

// Queries renders the query list plus a summary sheet.
func Queries(queries []DMBot.Query, stats DMBot.QueryStats) (*bytes.Buffer, error) {
	list := sheet{
		name: "Queries",
		headers: []string{
			"Query ID", "Study", "Domain", "Category", "Severity", "Status",
			"Assignee", "Description", "Created", "Due", "Resolved", "Subject",
		},
	}
	for _, q := range queries {
		subject := ""
		if q.ReferenceData != nil {
			subject = q.ReferenceData.USUBJID
		}
		created := q.CreatedAt
		list.rows = append(list.rows, []interface{}{
			q.ID, q.StudyID, q.Domain, q.Category, string(q.Severity), string(q.Status),
			q.Assignee, q.Description, formatTime(&created), formatTime(q.DueDate), formatTime(q.ResolvedAt), subject,
		})
	}

	summary := sheet{name: "Summary", headers: []string{"Metric", "Value"}}
	summary.rows = [][]interface{}{
		{"Total", stats.Total},
		{"Active", stats.Active},
		{"Resolved", stats.Resolved},
		{"Overdue", stats.Overdue},
		{"Avg resolution (h)", stats.AvgResolutionHours},
	}
	for _, st := range []DMBot.QueryStatus{DMBot.StatusNew, DMBot.StatusAssigned, DMBot.StatusInReview, DMBot.StatusResolved} {
		summary.rows = append(summary.rows, []interface{}{"Status " + string(st), stats.ByStatus[st]})
	}

	return writeWorkbook(list, summary)
}

// DomainRows renders SDTM rows of one domain. Identifier columns come first,
// the remaining variables in alphabetical order.
func DomainRows(domain string, rows []Models.DomainRecord) (*bytes.Buffer, error) {
	lead := []string{"STUDYID", "DOMAIN", "USUBJID"}
	seen := map[string]bool{"STUDYID": true, "DOMAIN": true, "USUBJID": true}
	var rest []string
	for _, r := range rows {
		for k := range r.Data {
			if !seen[k] {
				seen[k] = true
				rest = append(rest, k)
			}
		}
	}
	sort.Strings(rest)
	headers := append(lead, rest...)

	s := sheet{name: strings.ToUpper(domain), headers: headers}
	for _, r := range rows {
		values := make([]interface{}, len(headers))
		for i, h := range headers {
			switch h {
			case "STUDYID":
				values[i] = r.StudyID
			case "DOMAIN":
				values[i] = r.Domain
			case "USUBJID":
				values[i] = r.USUBJID
			default:
				values[i] = r.Data[h]
			}
		}
		s.rows = append(s.rows, values)
	}
	return writeWorkbook(s)
}

// Send writes the workbook as an attachment download.
func Send(c *fiber.Ctx, fileName string, buf *bytes.Buffer) error {
	c.Set(fiber.HeaderContentType, XLSXContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, fileName))
	c.Set(fiber.HeaderContentLength, fmt.Sprintf("%d", buf.Len()))
	return c.Send(buf.Bytes())
}
