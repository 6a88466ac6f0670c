package challan

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brickflow/brickflow/internal/requisition"
)

const (
	printDateLayout     = "02/01/2006"
	printDateTimeLayout = "02/01/2006 15:04:05"
)

// Document is the data behind a printable challan.
type Document struct {
	ChallanInfo     DocumentChallanInfo  `json:"challan_info"`
	OrderDetails    DocumentOrderDetails `json:"order_details"`
	CustomerDetails DocumentCustomer     `json:"customer_details"`
	VehicleDetails  DocumentVehicle      `json:"vehicle_details"`
	SalesExecutive  DocumentPerson       `json:"sales_executive"`
	DeliveryInfo    DocumentDelivery     `json:"delivery_info"`
	PrintInfo       DocumentPrintInfo    `json:"print_info"`
}

type DocumentChallanInfo struct {
	ChallanNumber  string `json:"challan_number"`
	OrderNumber    string `json:"order_number"`
	Date           string `json:"date"`
	DeliveryStatus string `json:"delivery_status"`
}

type DocumentOrderDetails struct {
	BrickType    string `json:"brick_type"`
	Quantity     string `json:"quantity"`
	PricePerUnit string `json:"price_per_unit"`
	TotalAmount  string `json:"total_amount"`
}

type DocumentCustomer struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Location string `json:"location"`
}

type DocumentVehicle struct {
	VehicleNumber string  `json:"vehicle_number"`
	DriverName    *string `json:"driver_name"`
	VehicleType   *string `json:"vehicle_type"`
	Location      string  `json:"location"`
}

type DocumentPerson struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type DocumentDelivery struct {
	DeliveryDate *string `json:"delivery_date"`
	Remarks      *string `json:"remarks"`
}

type DocumentPrintInfo struct {
	DocumentID  uuid.UUID `json:"document_id"`
	PrintCount  int       `json:"print_count"`
	GeneratedAt string    `json:"generated_at"`
}

// BuildDocument assembles the printable document for c. The print count shown is
// the one the challan will carry after this print is recorded.
func BuildDocument(c Challan, req requisition.Requisition, now time.Time) Document {
	doc := Document{
		ChallanInfo: DocumentChallanInfo{
			ChallanNumber:  c.ChallanNumber,
			OrderNumber:    c.OrderNumber,
			Date:           c.Date.Format(printDateLayout),
			DeliveryStatus: c.Status.Label(),
		},
		OrderDetails: DocumentOrderDetails{
			BrickType:    req.BrickTypeName,
			Quantity:     req.Quantity.StringFixed(2),
			PricePerUnit: req.PricePerUnit.StringFixed(2),
			TotalAmount:  req.TotalAmount.StringFixed(2),
		},
		CustomerDetails: DocumentCustomer{
			Name:     req.CustomerName,
			Phone:    req.CustomerPhone,
			Address:  req.CustomerAddress,
			Location: req.CustomerLocation,
		},
		VehicleDetails: DocumentVehicle{
			VehicleNumber: c.VehicleNumber,
			DriverName:    c.DriverName,
			VehicleType:   c.VehicleType,
			Location:      c.Location,
		},
		SalesExecutive: DocumentPerson{ID: req.UserID, Name: req.UserName},
		DeliveryInfo:   DocumentDelivery{Remarks: c.Remarks},
		PrintInfo: DocumentPrintInfo{
			DocumentID:  uuid.New(),
			PrintCount:  c.PrintCount + 1,
			GeneratedAt: now.Format(printDateTimeLayout),
		},
	}
	if c.DeliveryDate != nil {
		d := c.DeliveryDate.Format(printDateLayout)
		doc.DeliveryInfo.DeliveryDate = &d
	}
	return doc
}

// Label renders the status for print ("in_transit" becomes "In transit").
func (s Status) Label() string {
	text := strings.ReplaceAll(string(s), "_", " ")
	if text == "" {
		return text
	}
	return strings.ToUpper(text[:1]) + text[1:]
}
