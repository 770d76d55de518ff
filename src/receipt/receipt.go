package receipt

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"clinic-ops/src/models"
)

const width = 48

type Clinic struct {
	Name     string
	Address  string
	Phone    string
	Currency string
}

// Document is a rendered, printer-ready receipt.
type Document struct {
	Reference string
	Text      string
}

type Printer interface {
	Print(ctx context.Context, doc Document) error
}

// LogPrinter writes receipts to the log. Used when no device is attached.
type LogPrinter struct {
	Log *zap.Logger
}

func (p *LogPrinter) Print(ctx context.Context, doc Document) error {
	p.Log.Info("receipt", zap.String("reference", doc.Reference), zap.String("text", doc.Text))
	return nil
}

func center(s string) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", (width-len(s))/2) + s
}

// RenderTransaction lays out a point-of-sale receipt.
func RenderTransaction(clinic Clinic, txn *models.Transaction) Document {
	var buf bytes.Buffer
	rule := strings.Repeat("-", width)

	fmt.Fprintln(&buf, center(clinic.Name))
	if clinic.Address != "" {
		fmt.Fprintln(&buf, center(clinic.Address))
	}
	if clinic.Phone != "" {
		fmt.Fprintln(&buf, center("Tel: "+clinic.Phone))
	}
	fmt.Fprintln(&buf, rule)
	fmt.Fprintf(&buf, "Receipt: %s\n", txn.TransactionID)
	fmt.Fprintf(&buf, "Date:    %s\n", txn.CreatedAt.Format("2006-01-02 15:04"))
	if txn.PatientName != "" {
		fmt.Fprintf(&buf, "Patient: %s\n", txn.PatientName)
	}
	fmt.Fprintln(&buf, rule)

	tw := tabwriter.NewWriter(&buf, 0, 0, 1, ' ', tabwriter.AlignRight)
	for _, line := range txn.LineItems {
		fmt.Fprintf(tw, "%s\t%d x %s\t%s\t\n",
			truncate(line.ItemName, 22), line.Quantity,
			line.UnitPrice.StringFixed(2), line.Subtotal.StringFixed(2))
	}
	tw.Flush()

	fmt.Fprintln(&buf, rule)
	fmt.Fprintf(&buf, "TOTAL (%s): %s\n", clinic.Currency, txn.TotalAmount.StringFixed(2))
	fmt.Fprintf(&buf, "Paid by: %s\n", txn.PaymentMethod)
	if txn.Status == models.TransactionCancelled {
		fmt.Fprintln(&buf, center("*** CANCELLED ***"))
	}
	fmt.Fprintln(&buf, center("Thank you"))

	return Document{Reference: txn.TransactionID, Text: buf.String()}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}
