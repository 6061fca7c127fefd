package response

import (
	"time"

	"quotes_service/internal/domain/entities"
	"quotes_service/internal/domain/money"
)

type LineItemResponse struct {
	ID              string `json:"id"`
	ItemDescription string `json:"itemDescription"`
	Quantity        string `json:"quantity" example:"10"`
	Rate            string `json:"rate" example:"4.25"`
	LineTotal       string `json:"lineTotal" example:"42.50"`
	DisplayOrder    int    `json:"displayOrder"`
}

// QuoteResponse renders money as fixed two-place decimal strings.
type QuoteResponse struct {
	QuoteNumber            string             `json:"quoteNumber" example:"QT-0000001"`
	ProjectIdentifier      string             `json:"projectIdentifier"`
	LotIdentifier          string             `json:"lotIdentifier,omitempty"`
	Category               string             `json:"category,omitempty"`
	ContractorID           string             `json:"contractorId"`
	Status                 string             `json:"status" example:"SUBMITTED"`
	LineItems              []LineItemResponse `json:"lineItems"`
	TotalAmount            string             `json:"totalAmount" example:"125.00"`
	ApprovedBy             string             `json:"approvedBy,omitempty"`
	ApprovedAt             *time.Time         `json:"approvedAt,omitempty"`
	RejectionReason        string             `json:"rejectionReason,omitempty"`
	CustomerAcknowledgedBy string             `json:"customerAcknowledgedBy,omitempty"`
	CustomerAcknowledgedAt *time.Time         `json:"customerAcknowledgedAt,omitempty"`
	CreatedAt              time.Time          `json:"createdAt"`
	UpdatedAt              time.Time          `json:"updatedAt"`
}

func FromQuote(q entities.Quote) QuoteResponse {
	items := make([]LineItemResponse, 0, len(q.LineItems))
	for _, li := range q.LineItems {
		items = append(items, LineItemResponse{
			ID:              li.ID,
			ItemDescription: li.Description,
			Quantity:        li.Quantity.String(),
			Rate:            li.Rate.String(),
			LineTotal:       money.Format(li.LineTotal),
			DisplayOrder:    li.DisplayOrder,
		})
	}
	return QuoteResponse{
		QuoteNumber:            q.Number,
		ProjectIdentifier:      q.ProjectRef,
		LotIdentifier:          q.LotRef,
		Category:               q.Category,
		ContractorID:           q.ContractorRef,
		Status:                 string(q.Status),
		LineItems:              items,
		TotalAmount:            money.Format(q.TotalAmount),
		ApprovedBy:             q.ApprovedBy,
		ApprovedAt:             q.ApprovedAt,
		RejectionReason:        q.RejectionReason,
		CustomerAcknowledgedBy: q.CustomerAcknowledgedBy,
		CustomerAcknowledgedAt: q.CustomerAcknowledgedAt,
		CreatedAt:              q.CreatedAt,
		UpdatedAt:              q.UpdatedAt,
	}
}

func FromQuotes(quotes []entities.Quote) []QuoteResponse {
	out := make([]QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, FromQuote(q))
	}
	return out
}
