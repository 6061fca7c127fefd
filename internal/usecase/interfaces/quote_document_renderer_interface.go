package interfaces

import (
	"io"

	"quotes_service/internal/domain/entities"
)

// IQuoteDocumentRenderer writes a printable rendition of a quote.
type IQuoteDocumentRenderer interface {
	Render(w io.Writer, q entities.Quote) error
	ContentType() string
}
