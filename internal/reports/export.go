package reports

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/brickflow/brickflow/internal/money"
	"github.com/brickflow/brickflow/internal/payment"
)

var dayTotalsHeader = []string{"Date", "Orders", "Expected", "Received", "Outstanding"}

var deliveredOrderHeader = []string{
	"Challan Number", "Order Number", "Customer", "Brick Type", "Quantity", "Total Amount",
	"Payment Status", "Amount Received", "Outstanding", "Delivery Date", "Sales Executive",
}

// WriteDeliveredOrdersCSV writes a report as CSV sections of differing widths.
// The per-day section is omitted when days is empty.
func WriteDeliveredOrdersCSV(w io.Writer, title string, summary Summary, breakdown map[payment.Status]StatusBreakdown, days []DayTotals, orders []DeliveredOrder) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	records := [][]string{
		{title},
		{"Total Delivered Orders", strconv.Itoa(summary.TotalDeliveredOrders)},
		{"Total Expected Amount", money.Format(summary.TotalExpectedAmount)},
		{"Total Received Amount", money.Format(summary.TotalReceivedAmount)},
		{"Total Outstanding Amount", money.Format(summary.TotalOutstandingAmount)},
		{},
		{"Payment Status", "Count", "Expected", "Received", "Outstanding"},
	}
	for _, st := range payment.Statuses() {
		b := breakdown[st]
		records = append(records, []string{
			string(st),
			strconv.Itoa(b.Count),
			money.Format(b.ExpectedAmount),
			money.Format(b.ReceivedAmount),
			money.Format(b.OutstandingAmount),
		})
	}
	if len(days) > 0 {
		records = append(records, []string{}, dayTotalsHeader)
		for _, d := range days {
			records = append(records, []string{
				d.Date.Format(dateLayout),
				strconv.Itoa(d.OrdersCount),
				money.Format(d.ExpectedAmount),
				money.Format(d.ReceivedAmount),
				money.Format(d.OutstandingAmount),
			})
		}
	}
	records = append(records, []string{}, deliveredOrderHeader)
	for _, o := range orders {
		records = append(records, []string{
			o.ChallanNumber,
			o.OrderNumber,
			o.CustomerName,
			o.BrickType,
			money.Format(o.Quantity),
			money.Format(o.TotalAmount),
			string(o.Status()),
			money.Format(o.AmountReceived),
			money.Format(o.Outstanding()),
			o.DeliveryDate.Format(dateLayout),
			o.SalesExecutive,
		})
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
