package model

import "time"

// Order is a customer's print job.
type Order struct {
	ID              int64      `json:"id"`
	ServiceID       string     `json:"service_id"`
	ServiceName     string     `json:"service_name"`
	Date            string     `json:"date"`
	Status          string     `json:"status"`
	Quantity        int        `json:"quantity"`
	PaperType       string     `json:"paper_type"`
	PrintColor      string     `json:"print_color"`
	PrintSides      string     `json:"print_sides"`
	Orientation     string     `json:"orientation"`
	Notes           string     `json:"notes"`
	TotalPrice      float64    `json:"total_price"`
	FileName        string     `json:"file_name"`
	CustomerName    string     `json:"customer_name"`
	CustomerEmail   string     `json:"customer_email"`
	CustomerID      *int64     `json:"customer_id,omitempty"`
	Shipping        Shipping   `json:"shipping"`
	StockDeductedAt *time.Time `json:"stock_deducted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Shipping is the delivery address captured at checkout.
type Shipping struct {
	Address string `json:"address"`
	City    string `json:"city"`
	ZipCode string `json:"zip_code"`
}

// Order statuses, in lifecycle order.
const (
	StatusSubmitted      = "Submitted"
	StatusPrinting       = "Printing"
	StatusQualityCheck   = "Quality Check"
	StatusReadyForPickup = "Ready for Pickup"
	StatusCompleted      = "Completed"
)

// Statuses lists every order status in forward order.
var Statuses = []string{
	StatusSubmitted,
	StatusPrinting,
	StatusQualityCheck,
	StatusReadyForPickup,
	StatusCompleted,
}

// Print options.
const (
	ColorFull = "Color"
	ColorBW   = "B&W"

	SidesSingle = "Single-Sided"
	SidesDouble = "Double-Sided"

	OrientationPortrait  = "Portrait"
	OrientationLandscape = "Landscape"
)

// StatusIndex returns the position of status in the lifecycle, or -1.
func StatusIndex(status string) int {
	for i, s := range Statuses {
		if s == status {
			return i
		}
	}
	return -1
}

// ValidStatus reports whether status is a lifecycle state.
func ValidStatus(status string) bool {
	return StatusIndex(status) >= 0
}

// NextStatus returns the status following current, or "" when current is
// terminal or unknown.
func NextStatus(current string) string {
	i := StatusIndex(current)
	if i < 0 || i == len(Statuses)-1 {
		return ""
	}
	return Statuses[i+1]
}

// ValidPrintColor reports whether c is a known color mode.
func ValidPrintColor(c string) bool {
	return c == ColorFull || c == ColorBW
}

// ValidPrintSides reports whether s is a known sides option.
func ValidPrintSides(s string) bool {
	return s == SidesSingle || s == SidesDouble
}

// ValidOrientation reports whether o is a known orientation.
func ValidOrientation(o string) bool {
	return o == OrientationPortrait || o == OrientationLandscape
}

// Transition is the outcome of moving an order to a new status.
type Transition struct {
	Order     *Order     `json:"order"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	Deduction *Deduction `json:"deduction,omitempty"`
	Warning   string     `json:"warning,omitempty"`
}

// Deduction describes stock removed when an order entered printing.
type Deduction struct {
	ItemID       int64  `json:"item_id"`
	ItemName     string `json:"item_name"`
	Required     int    `json:"required"`
	Available    int    `json:"available"`
	Deducted     int    `json:"deducted"`
	Remaining    int    `json:"remaining"`
	Insufficient bool   `json:"insufficient"`
}
