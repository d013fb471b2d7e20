package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

const TicketWidth = 32

const (
	escInit = "\x1b@"
	escCut  = "\n\n\n\x1dV\x00"
)

// RenderTicket lays out an order ticket as plain text, TicketWidth columns wide.
func RenderTicket(restaurantName string, order *models.Order, at time.Time) string {
	var b strings.Builder
	rule := strings.Repeat("=", TicketWidth)
	thin := strings.Repeat("-", TicketWidth)

	b.WriteString(rule + "\n")
	b.WriteString(center(restaurantName) + "\n")
	b.WriteString(rule + "\n")
	b.WriteString(fmt.Sprintf("Order #%d\n", order.OrderNumber))
	if order.TableNumber != nil {
		b.WriteString(fmt.Sprintf("Table %d\n", *order.TableNumber))
	}
	b.WriteString("Customer: " + clip(order.DisplayName(), TicketWidth-len("Customer: ")) + "\n")
	b.WriteString(at.Format("2006-01-02 15:04") + "\n")
	b.WriteString(thin + "\n")

	for _, item := range order.OrderItems {
		amount := utils.FormatMoney(item.Price * float64(item.Quantity))
		b.WriteString(columns(fmt.Sprintf("%d x %s", item.Quantity, item.Name), amount) + "\n")
		if item.Notes != "" {
			b.WriteString("   * " + clip(item.Notes, TicketWidth-5) + "\n")
		}
	}

	b.WriteString(thin + "\n")
	b.WriteString(columns("TOTAL", utils.FormatMoney(order.TotalAmount)) + "\n")
	b.WriteString(fmt.Sprintf("Items: %d\n", order.ItemCount))
	b.WriteString(fmt.Sprintf("Status: %s | %s\n", order.Status, order.PaymentStatus))
	b.WriteString(rule + "\n")
	return b.String()
}

// RenderTestPage is the printer self-test layout.
func RenderTestPage(devicePath string, at time.Time) string {
	rule := strings.Repeat("=", TicketWidth)
	return rule + "\n" +
		center("TEST PAGE") + "\n" +
		rule + "\n" +
		"Printer: " + clip(devicePath, TicketWidth-len("Printer: ")) + "\n" +
		at.Format("2006-01-02 15:04") + "\n" +
		"Printer is working.\n" +
		rule + "\n"
}

// escpos wraps text in printer init and cut sequences.
func escpos(text string) []byte {
	return []byte(escInit + text + escCut)
}

func center(s string) string {
	s = clip(s, TicketWidth)
	pad := (TicketWidth - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

// columns puts left and right on one line, right-aligned, clipping left.
func columns(left, right string) string {
	room := TicketWidth - len(right) - 1
	left = clip(left, room)
	return left + strings.Repeat(" ", TicketWidth-len(left)-len(right)) + right
}

func clip(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return s[:n]
}
