// Package notice carries transient user-facing notifications back to the
// client alongside a view.
package notice

import "fmt"

// Status mirrors toast severities.
type Status string

const (
	Success Status = "success"
	Error   Status = "error"
	Info    Status = "info"
)

// Notice is a single toast.
type Notice struct {
	Status      Status `json:"status"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description"`
}

// Successf builds a success notice.
func Successf(format string, args ...any) Notice {
	return Notice{Status: Success, Description: fmt.Sprintf(format, args...)}
}

// Errorf builds an error notice.
func Errorf(format string, args ...any) Notice {
	return Notice{Status: Error, Description: fmt.Sprintf(format, args...)}
}

// Canned messages shared by the page services.
var (
	StockExceeded = Notice{Status: Error, Title: "Stock limit reached", Description: "The quantity cannot be increased any further."}
	LoginRequired = Notice{Status: Error, Description: "Please log in to continue."}
	StockChanged  = Notice{Status: Info, Title: "Stock changed", Description: "Your selection was adjusted to the current stock."}
)
