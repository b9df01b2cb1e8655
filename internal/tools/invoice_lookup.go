package tools

import (
	"context"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

// invoiceRecord is one static record in the lookup table.
type invoiceRecord struct {
	Status      string   `json:"status"`
	Tracking    string   `json:"tracking"`
	LineItems   []string `json:"lineItems"`
	InvoiceNum  string   `json:"invoiceNumber"`
}

// invoiceTable is the reference tool's fixed backing data: a fixed
// record served from a static lookup table.
var invoiceTable = map[string]invoiceRecord{
	"1001": {Status: "shipped", Tracking: "1Z999AA10123456784", LineItems: []string{"Headset", "USB-C cable"}, InvoiceNum: "INV-1001"},
	"1002": {Status: "processing", Tracking: "", LineItems: []string{"Desk lamp"}, InvoiceNum: "INV-1002"},
	"1003": {Status: "delivered", Tracking: "1Z999AA10123456799", LineItems: []string{"Webcam", "Tripod", "Ring light"}, InvoiceNum: "INV-1003"},
	"1004": {Status: "cancelled", Tracking: "", LineItems: []string{"Keyboard"}, InvoiceNum: "INV-1004"},
}

// invoiceLookupArgs is the declared parameter shape: exactly one of
// orderId or invoiceNumber must be set.
type invoiceLookupArgs struct {
	OrderID       string `json:"orderId,omitempty"`
	InvoiceNumber string `json:"invoiceNumber,omitempty"`
}

var invoiceLookupSchema = jsonschema.Reflect(invoiceLookupArgs{})

// InvoiceLookup is the reference tool: resolve an order or invoice number
// to its shipment record.
type InvoiceLookup struct{}

func NewInvoiceLookup() *InvoiceLookup { return &InvoiceLookup{} }

func (t *InvoiceLookup) Name() string { return "InvoiceLookup" }

func (t *InvoiceLookup) Description() string {
	return "Look up an order's shipment status and line items by order id or invoice number."
}

func (t *InvoiceLookup) ParametersSchema() domain.JSON {
	b, err := invoiceLookupSchema.MarshalJSON()
	if err != nil {
		return domain.JSON(`{}`)
	}
	return domain.JSON(b)
}

func (t *InvoiceLookup) Permissions() Permissions {
	return Permissions{DataAccess: DataAccessTenantReadonly, NetworkAccess: false, EstimatedCostCents: 0}
}

func (t *InvoiceLookup) Limits() Limits {
	return Limits{Timeout: 3 * time.Second, MaxPayloadBytes: 4096}
}

func (t *InvoiceLookup) Execute(ctx context.Context, args domain.JSON) (Result, error) {
	orderID := args.Get("orderId").String()
	invoiceNumber := args.Get("invoiceNumber").String()

	if (orderID == "") == (invoiceNumber == "") {
		return Result{Success: false, Error: "exactly one of orderId or invoiceNumber is required"}, nil
	}

	key := orderID
	if key == "" {
		key = invoiceNumberToOrderID(invoiceNumber)
	}

	rec, ok := invoiceTable[key]
	if !ok {
		return Result{Success: false, Error: "Order not found"}, nil
	}

	out, err := domain.NewJSON(map[string]any{
		"status":        rec.Status,
		"tracking":      rec.Tracking,
		"lineItems":     rec.LineItems,
		"invoiceNumber": rec.InvoiceNum,
	})
	if err != nil {
		return Result{}, err
	}

	return Result{Success: true, Data: out}, nil
}

func invoiceNumberToOrderID(invoiceNumber string) string {
	for orderID, rec := range invoiceTable {
		if rec.InvoiceNum == invoiceNumber {
			return orderID
		}
	}
	return ""
}
