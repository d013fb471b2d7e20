package services

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

// DashboardPDF renders stats as a one page A4 report.
func DashboardPDF(restaurantName string, stats *DashboardStats) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(restaurantName+" sales report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, restaurantName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	period := fmt.Sprintf("%s - %s", stats.From.Format("2006-01-02"), stats.To.AddDate(0, 0, -1).Format("2006-01-02"))
	pdf.CellFormat(0, 7, period, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	summary := [][2]string{
		{"Orders", fmt.Sprintf("%d", stats.TotalOrders)},
		{"Paid orders", fmt.Sprintf("%d", stats.PaidOrders)},
		{"Revenue", utils.FormatMoney(stats.Revenue)},
	}
	for _, row := range summary {
		pdf.CellFormat(60, 7, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, row[1], "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Orders by status", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, st := range models.OrderStatuses {
		pdf.CellFormat(60, 7, st, "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, fmt.Sprintf("%d", stats.StatusCounts[st]), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Top items", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(80, 7, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, "Qty", "1", 0, "R", false, 0, "")
	pdf.CellFormat(50, 7, "Revenue", "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	if len(stats.TopItems) == 0 {
		pdf.CellFormat(160, 7, "No sales in this period", "1", 1, "C", false, 0, "")
	}
	for _, item := range stats.TopItems {
		pdf.CellFormat(80, 7, item.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 7, utils.FormatMoney(item.Revenue), "1", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, opError("render dashboard pdf", err)
	}
	return buf.Bytes(), nil
}
