package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	request "quotes_service/internal/adapter/http/dto/request"
	response "quotes_service/internal/adapter/http/dto/response"
	"quotes_service/internal/adapter/http/middleware"
	"quotes_service/internal/domain/entities"
	"quotes_service/internal/domain/policy"
	"quotes_service/internal/usecase"
	"quotes_service/internal/usecase/interfaces"
	"quotes_service/pkg"

	"github.com/gin-gonic/gin"
)

var (
	errInvalidQuotePayload = pkg.NewDomainErrorSimple("INVALID_QUOTE_DATA", "Invalid quote payload", http.StatusBadRequest)
)

// QuoteHandler handles HTTP requests for quotes. The caller identity comes from the auth
// middleware; every permission decision is left to the use case.
type QuoteHandler struct {
	usecase  usecase.IQuoteUseCase
	renderer interfaces.IQuoteDocumentRenderer
}

func NewQuoteHandler(uc usecase.IQuoteUseCase, renderer interfaces.IQuoteDocumentRenderer) *QuoteHandler {
	return &QuoteHandler{usecase: uc, renderer: renderer}
}

// Ping godoc
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /ping [get]
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// CreateQuote godoc
// @Summary      Create a quote
// @Description  Contractors create quotes for themselves. The quote starts SUBMITTED.
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        body  body      request.CreateQuoteRequest  true  "Quote"
// @Success      201   {object}  response.QuoteResponse
// @Failure      400   {object}  pkg.HTTPError
// @Failure      403   {object}  pkg.HTTPError
// @Failure      503   {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /quotes [post]
func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	var payload request.CreateQuoteRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(errInvalidQuotePayload.HTTPStatus, errInvalidQuotePayload.WithDetails(err.Error()).ToHTTPError())
		return
	}

	q, err := h.usecase.CreateQuote(c.Request.Context(), middleware.PrincipalFrom(c), payload.ToCommand())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.FromQuote(q))
}

// CreateDraftQuote godoc
// @Summary      Create a draft quote on behalf of a contractor
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        body  body      request.CreateQuoteRequest  true  "Quote; contractorId is required"
// @Success      201   {object}  response.QuoteResponse
// @Failure      400   {object}  pkg.HTTPError
// @Failure      403   {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /quotes/drafts [post]
func (h *QuoteHandler) CreateDraftQuote(c *gin.Context) {
	var payload request.CreateQuoteRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(errInvalidQuotePayload.HTTPStatus, errInvalidQuotePayload.WithDetails(err.Error()).ToHTTPError())
		return
	}

	q, err := h.usecase.CreateDraftQuote(c.Request.Context(), middleware.PrincipalFrom(c), payload.ToCommand())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.FromQuote(q))
}

// UpdateQuote godoc
// @Summary      Edit a draft quote
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        number  path      string                      true  "Quote number"
// @Param        body    body      request.UpdateQuoteRequest  true  "Changes"
// @Success      200     {object}  response.QuoteResponse
// @Failure      400     {object}  pkg.HTTPError
// @Failure      404     {object}  pkg.HTTPError
// @Failure      409     {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /quotes/{number} [put]
func (h *QuoteHandler) UpdateQuote(c *gin.Context) {
	var payload request.UpdateQuoteRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(errInvalidQuotePayload.HTTPStatus, errInvalidQuotePayload.WithDetails(err.Error()).ToHTTPError())
		return
	}

	q, err := h.usecase.UpdateQuote(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("number"), payload.ToCommand())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromQuote(q))
}

// SubmitQuote godoc
// @Summary      Submit a draft quote for review
// @Tags         quotes
// @Produce      json
// @Param        number  path      string  true  "Quote number"
// @Success      200     {object}  response.QuoteResponse
// @Failure      409     {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /quotes/{number}/submit [patch]
func (h *QuoteHandler) SubmitQuote(c *gin.Context) {
	h.transition(c, h.usecase.SubmitQuote)
}

// ApproveQuote godoc
// @Summary      Approve a submitted quote
// @Tags         quotes
// @Produce      json
// @Param        number  path      string  true  "Quote number"
// @Success      200     {object}  response.QuoteResponse
// @Failure      403     {object}  pkg.HTTPError
// @Failure      409     {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /quotes/{number}/approve [patch]
func (h *QuoteHandler) ApproveQuote(c *gin.Context) {
	h.transition(c, h.usecase.ApproveQuote)
}

// RejectQuote godoc
// @Summary      Reject a submitted quote
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        number  path      string                      true  "Quote number"
// @Param        body    body      request.RejectQuoteRequest  true  "Reason"
// @Success      200     {object}  response.QuoteResponse
// @Failure      400     {object}  pkg.HTTPError
// @Failure      409     {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /quotes/{number}/reject [patch]
func (h *QuoteHandler) RejectQuote(c *gin.Context) {
	var payload request.RejectQuoteRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(errInvalidQuotePayload.HTTPStatus, errInvalidQuotePayload.WithDetails(err.Error()).ToHTTPError())
		return
	}

	q, err := h.usecase.RejectQuote(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("number"), payload.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromQuote(q))
}

// AcknowledgeQuote godoc
// @Summary      Record customer acknowledgement of an approved quote
// @Tags         quotes
// @Produce      json
// @Param        number  path      string  true  "Quote number"
// @Success      200     {object}  response.QuoteResponse
// @Failure      409     {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /quotes/{number}/acknowledge [patch]
func (h *QuoteHandler) AcknowledgeQuote(c *gin.Context) {
	h.transition(c, h.usecase.AcknowledgeQuote)
}

func (h *QuoteHandler) transition(
	c *gin.Context,
	apply func(ctx context.Context, p policy.Principal, number string) (entities.Quote, error),
) {
	q, err := apply(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("number"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromQuote(q))
}

// GetQuote godoc
// @Summary      Get a quote by number
// @Tags         quotes
// @Produce      json
// @Param        number  path      string  true  "Quote number"
// @Success      200     {object}  response.QuoteResponse
// @Failure      403     {object}  pkg.HTTPError
// @Failure      404     {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /quotes/{number} [get]
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	q, err := h.usecase.GetByNumber(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("number"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromQuote(q))
}

// GetQuoteDocument godoc
// @Summary      Download a quote as PDF
// @Tags         quotes
// @Produce      application/pdf
// @Param        number  path  string  true  "Quote number"
// @Success      200
// @Failure      404     {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /quotes/{number}/pdf [get]
func (h *QuoteHandler) GetQuoteDocument(c *gin.Context) {
	q, err := h.usecase.GetByNumber(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("number"))
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, q); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, q.Number))
	c.Data(http.StatusOK, h.renderer.ContentType(), buf.Bytes())
}

// ListByProject godoc
// @Summary      List the quotes of a project visible to the caller
// @Tags         quotes
// @Produce      json
// @Param        projectRef  path      string  true  "Project identifier"
// @Success      200         {array}   response.QuoteResponse
// @Security     Bearer
// @Router       /quotes/project/{projectRef} [get]
func (h *QuoteHandler) ListByProject(c *gin.Context) {
	h.listByParam(c, "projectRef", h.usecase.ListByProject)
}

// ListByLot godoc
// @Summary      List the quotes of a lot visible to the caller
// @Tags         quotes
// @Produce      json
// @Param        lotRef  path      string  true  "Lot identifier"
// @Success      200     {array}   response.QuoteResponse
// @Security     Bearer
// @Router       /quotes/lot/{lotRef} [get]
func (h *QuoteHandler) ListByLot(c *gin.Context) {
	h.listByParam(c, "lotRef", h.usecase.ListByLot)
}

// ListByContractor godoc
// @Summary      List the quotes of a contractor
// @Tags         quotes
// @Produce      json
// @Param        contractorRef  path      string  true  "Contractor identifier"
// @Success      200            {array}   response.QuoteResponse
// @Failure      403            {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /quotes/contractor/{contractorRef} [get]
func (h *QuoteHandler) ListByContractor(c *gin.Context) {
	h.listByParam(c, "contractorRef", h.usecase.ListByContractor)
}

// ListMyQuotes godoc
// @Summary      List the caller's own quotes
// @Tags         quotes
// @Produce      json
// @Success      200  {array}   response.QuoteResponse
// @Failure      403  {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /quotes/my-quotes [get]
func (h *QuoteHandler) ListMyQuotes(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	if !p.Has(policy.RoleContractor) {
		h.fail(c, fmt.Errorf("%w: only contractors have their own quotes", entities.ErrUnauthorized))
		return
	}
	quotes, err := h.usecase.ListByContractor(c.Request.Context(), p, p.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromQuotes(quotes))
}

// ListByStatus godoc
// @Summary      List quotes in a status visible to the caller
// @Tags         quotes
// @Produce      json
// @Param        status  path      string  true  "DRAFT, SUBMITTED, APPROVED or REJECTED"
// @Success      200     {array}   response.QuoteResponse
// @Failure      400     {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /quotes/status/{status} [get]
func (h *QuoteHandler) ListByStatus(c *gin.Context) {
	h.listByParam(c, "status", h.usecase.ListByStatus)
}

// ListAll godoc
// @Summary      List every quote, newest first
// @Tags         admin
// @Produce      json
// @Success      200  {array}   response.QuoteResponse
// @Failure      403  {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /quotes/admin/all [get]
func (h *QuoteHandler) ListAll(c *gin.Context) {
	quotes, err := h.usecase.ListAll(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromQuotes(quotes))
}

// ListSubmitted godoc
// @Summary      List quotes awaiting review
// @Tags         admin
// @Produce      json
// @Success      200  {array}   response.QuoteResponse
// @Failure      403  {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /quotes/admin/submitted [get]
func (h *QuoteHandler) ListSubmitted(c *gin.Context) {
	quotes, err := h.usecase.ListSubmitted(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromQuotes(quotes))
}

// ListSubmittedByProject godoc
// @Summary      List quotes of a project awaiting review
// @Tags         admin
// @Produce      json
// @Param        projectRef  path      string  true  "Project identifier"
// @Success      200         {array}   response.QuoteResponse
// @Failure      403         {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /quotes/admin/submitted/project/{projectRef} [get]
func (h *QuoteHandler) ListSubmittedByProject(c *gin.Context) {
	h.listByParam(c, "projectRef", h.usecase.ListSubmittedByProject)
}

func (h *QuoteHandler) listByParam(
	c *gin.Context,
	param string,
	list func(ctx context.Context, p policy.Principal, ref string) ([]entities.Quote, error),
) {
	quotes, err := list(c.Request.Context(), middleware.PrincipalFrom(c), c.Param(param))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromQuotes(quotes))
}

func (h *QuoteHandler) fail(c *gin.Context, err error) {
	appErr := mapQuoteError(err)
	_ = c.Error(err)
	c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
}

func mapQuoteError(err error) *pkg.AppError {
	var validation *entities.ValidationError
	switch {
	case errors.As(err, &validation):
		return pkg.NewDomainError("INVALID_QUOTE_DATA", "Invalid quote data", err, http.StatusBadRequest).WithDetails(validation.Messages()...)
	case errors.Is(err, entities.ErrInvalidQuoteData):
		return pkg.NewDomainError("INVALID_QUOTE_DATA", "Invalid quote data", err, http.StatusBadRequest)
	case errors.Is(err, entities.ErrUnauthorized):
		return pkg.NewDomainError("FORBIDDEN", "Not allowed to perform this operation", err, http.StatusForbidden)
	case errors.Is(err, entities.ErrQuoteNotFound):
		return pkg.NewDomainError("QUOTE_NOT_FOUND", "Quote not found", err, http.StatusNotFound)
	case errors.Is(err, entities.ErrInvalidStateTransition):
		return pkg.NewDomainError("INVALID_STATE_TRANSITION", "Quote is not in a state that allows this operation", err, http.StatusConflict)
	case errors.Is(err, entities.ErrConcurrencyConflict):
		return pkg.NewDomainError("CONCURRENT_MODIFICATION", "Quote was modified concurrently, retry the request", err, http.StatusConflict)
	case errors.Is(err, entities.ErrRetryableAllocation):
		return pkg.NewDomainError("NUMBER_ALLOCATION_UNAVAILABLE", "Quote numbering is temporarily unavailable", err, http.StatusServiceUnavailable)
	case errors.Is(err, entities.ErrSequenceExhausted):
		return pkg.NewDomainError("SEQUENCE_EXHAUSTED", "Quote number sequence is exhausted", err, http.StatusInternalServerError)
	default:
		return pkg.NewDomainError("INTERNAL_ERROR", "An internal error occurred", err, http.StatusInternalServerError)
	}
}
