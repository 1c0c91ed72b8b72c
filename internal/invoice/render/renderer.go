// Package render produces customer-facing invoice documents.
package render

import (
	"context"

	invoicedomain "github.com/civicgrid/civicbill/internal/invoice/domain"
)

// Renderer turns a stored invoice into a display document.
type Renderer interface {
	// Render returns the document bytes and its content type.
	Render(ctx context.Context, invoice *invoicedomain.Invoice) ([]byte, string, error)
}
