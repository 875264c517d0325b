package models

import "time"

type Product struct {
	ProductID         string `json:"productId"`
	Name              string `json:"name"`
	BatchNumber       string `json:"batchNumber"`
	ManufacturingDate string `json:"manufacturingDate"`
	Description       string `json:"description"`
	Price             string `json:"price"`
}

// ProductFields are the user-editable product fields in form order.
// The product ID is generated locally and never edited.
var ProductFields = []Field{
	{Key: "name", Label: "Product Name"},
	{Key: "batchNumber", Label: "Batch Number"},
	{Key: "manufacturingDate", Label: "Manufacturing Date"},
	{Key: "description", Label: "Description"},
	{Key: "price", Label: "Price"},
}

// Set assigns a product field by wire name. Unknown keys are ignored.
func (p *Product) Set(key, value string) {
	switch key {
	case "productId":
		p.ProductID = value
	case "name":
		p.Name = value
	case "batchNumber":
		p.BatchNumber = value
	case "manufacturingDate":
		p.ManufacturingDate = value
	case "description":
		p.Description = value
	case "price":
		p.Price = value
	}
}

// Values returns every field including the product ID, keyed by wire name.
func (p Product) Values() map[string]string {
	return map[string]string{
		"productId":         p.ProductID,
		"name":              p.Name,
		"batchNumber":       p.BatchNumber,
		"manufacturingDate": p.ManufacturingDate,
		"description":       p.Description,
		"price":             p.Price,
	}
}

// ScanEvent is one decoded code payload. It is consumed at most once.
type ScanEvent struct {
	RawPayload string    `json:"raw_payload"`
	CapturedAt time.Time `json:"captured_at"`
}

type Verdict string

const (
	VerdictGenuine Verdict = "GENUINE"
	VerdictFake    Verdict = "FAKE"
)

// Line is the indicator protocol encoding of the verdict.
func (v Verdict) Line() string { return string(v) + "\n" }

type VerificationResult struct {
	Status       Verdict `json:"status"`
	ProductID    string  `json:"productId,omitempty"`
	Manufacturer string  `json:"manufacturer,omitempty"`
	CurrentOwner string  `json:"currentOwner,omitempty"`
	Message      string  `json:"message,omitempty"`
}

func (r VerificationResult) Genuine() bool { return r.Status == VerdictGenuine }
