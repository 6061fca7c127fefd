package request

import (
	"strings"

	"quotes_service/internal/domain/entities"
	"quotes_service/internal/usecase"

	"github.com/shopspring/decimal"
)

// LineItemRequest carries amounts as decimals. Both JSON numbers and numeric strings are
// accepted and parsed exactly; absent fields stay nil and are reported by validation.
type LineItemRequest struct {
	ItemDescription string           `json:"itemDescription" example:"Framing lumber"`
	Quantity        *decimal.Decimal `json:"quantity" swaggertype:"string" example:"10"`
	Rate            *decimal.Decimal `json:"rate" swaggertype:"string" example:"4.25"`
	DisplayOrder    *int             `json:"displayOrder" example:"0"`
}

type CreateQuoteRequest struct {
	ProjectIdentifier string            `json:"projectIdentifier" example:"proj-001"`
	LotIdentifier     string            `json:"lotIdentifier,omitempty" example:"lot-12"`
	Category          string            `json:"category,omitempty" example:"Framing"`
	ContractorID      string            `json:"contractorId,omitempty"`
	LineItems         []LineItemRequest `json:"lineItems"`
}

// UpdateQuoteRequest edits a draft. Omitted fields keep their stored value; an explicit
// empty lineItems array clears the items.
type UpdateQuoteRequest struct {
	Category  *string           `json:"category,omitempty"`
	LineItems []LineItemRequest `json:"lineItems,omitempty"`
}

type RejectQuoteRequest struct {
	Reason string `json:"reason" example:"Over budget"`
}

func (r CreateQuoteRequest) ToCommand() usecase.CreateQuoteCommand {
	return usecase.CreateQuoteCommand{
		ProjectRef:    strings.TrimSpace(r.ProjectIdentifier),
		LotRef:        strings.TrimSpace(r.LotIdentifier),
		Category:      r.Category,
		ContractorRef: strings.TrimSpace(r.ContractorID),
		LineItems:     toLineItemInputs(r.LineItems),
	}
}

func (r UpdateQuoteRequest) ToCommand() usecase.UpdateQuoteCommand {
	return usecase.UpdateQuoteCommand{
		Category:  r.Category,
		LineItems: toLineItemInputs(r.LineItems),
	}
}

func toLineItemInputs(items []LineItemRequest) []entities.LineItemInput {
	if items == nil {
		return nil
	}
	out := make([]entities.LineItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, entities.LineItemInput{
			Description:  it.ItemDescription,
			Quantity:     it.Quantity,
			Rate:         it.Rate,
			DisplayOrder: it.DisplayOrder,
		})
	}
	return out
}
