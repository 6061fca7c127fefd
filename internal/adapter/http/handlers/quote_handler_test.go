package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quotes_service/internal/adapter/http/handlers/mocks"
	"quotes_service/internal/adapter/http/middleware"
	"quotes_service/internal/domain/entities"
	"quotes_service/internal/domain/money"
	"quotes_service/internal/domain/policy"
	"quotes_service/internal/usecase"
	mock_interfaces "quotes_service/internal/usecase/interfaces/mocks"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"
)

var (
	contractor = policy.NewPrincipal("contractor-1", "CONTRACTOR")
	owner      = policy.NewPrincipal("owner-1", "ROLE_OWNER")
	customer   = policy.NewPrincipal("customer-1", "CUSTOMER")
)

func asCaller(p policy.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetPrincipal(c, p)
		c.Next()
	}
}

func newQuoteRouter(p policy.Principal, h *QuoteHandler, register func(r *gin.RouterGroup)) *gin.Engine {
	r := gin.New()
	g := r.Group("/v1", asCaller(p))
	register(g)
	return r
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func submittedQuote() entities.Quote {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	return entities.Quote{
		Number:        "QT-0000001",
		ProjectRef:    "proj-1",
		ContractorRef: "contractor-1",
		Status:        entities.QuoteStatusSubmitted,
		LineItems: []entities.LineItem{
			{ID: "li-1", Description: "Framing lumber", Quantity: money.MustParse("10"), Rate: money.MustParse("12.50"), LineTotal: money.MustParse("125.00")},
		},
		TotalAmount: money.MustParse("125.00"),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestQuoteHandler_CreateQuote(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("invalid json", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(contractor, h, func(g *gin.RouterGroup) { g.POST("/quotes", h.CreateQuote) })

		w := doRequest(r, http.MethodPost, "/v1/quotes", "{")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("validation errors carry details", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(contractor, h, func(g *gin.RouterGroup) { g.POST("/quotes", h.CreateQuote) })

		verr := entities.NewValidationError(
			entities.FieldViolation{Field: "projectRef", Message: "is required"},
			entities.FieldViolation{Field: "lineItems", Message: "at least one line item is required"},
		)
		uc.EXPECT().CreateQuote(gomock.Any(), contractor, gomock.Any()).Return(entities.Quote{}, verr)

		w := doRequest(r, http.MethodPost, "/v1/quotes", `{"lineItems":[]}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		body := decodeBody(t, w)
		if body["code"] != "INVALID_QUOTE_DATA" {
			t.Fatalf("unexpected code: %v", body["code"])
		}
		details, _ := body["details"].([]any)
		if len(details) != 2 {
			t.Fatalf("expected 2 details, got %v", body["details"])
		}
	})

	t.Run("forbidden", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(customer, h, func(g *gin.RouterGroup) { g.POST("/quotes", h.CreateQuote) })

		uc.EXPECT().CreateQuote(gomock.Any(), customer, gomock.Any()).Return(entities.Quote{}, entities.ErrUnauthorized)

		w := doRequest(r, http.MethodPost, "/v1/quotes", `{"projectIdentifier":"proj-1"}`)
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	t.Run("allocation unavailable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(contractor, h, func(g *gin.RouterGroup) { g.POST("/quotes", h.CreateQuote) })

		uc.EXPECT().CreateQuote(gomock.Any(), contractor, gomock.Any()).Return(entities.Quote{}, entities.ErrRetryableAllocation)

		w := doRequest(r, http.MethodPost, "/v1/quotes", `{"projectIdentifier":"proj-1"}`)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", w.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(contractor, h, func(g *gin.RouterGroup) { g.POST("/quotes", h.CreateQuote) })

		uc.EXPECT().CreateQuote(gomock.Any(), contractor, gomock.Any()).
			DoAndReturn(func(_ any, _ policy.Principal, cmd usecase.CreateQuoteCommand) (entities.Quote, error) {
				if cmd.ProjectRef != "proj-1" || len(cmd.LineItems) != 1 {
					t.Fatalf("unexpected command: %+v", cmd)
				}
				if cmd.LineItems[0].Quantity == nil || cmd.LineItems[0].Quantity.String() != "10" {
					t.Fatalf("quantity not parsed: %+v", cmd.LineItems[0])
				}
				return submittedQuote(), nil
			})

		w := doRequest(r, http.MethodPost, "/v1/quotes",
			`{"projectIdentifier":"proj-1","lineItems":[{"itemDescription":"Framing lumber","quantity":10,"rate":"12.50","displayOrder":0}]}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		body := decodeBody(t, w)
		if body["quoteNumber"] != "QT-0000001" || body["totalAmount"] != "125.00" || body["status"] != "SUBMITTED" {
			t.Fatalf("unexpected response body: %s", w.Body.String())
		}
	})
}

func TestQuoteHandler_CreateDraftQuote(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	uc := mocks.NewMockIQuoteUseCase(ctrl)
	h := NewQuoteHandler(uc, nil)
	r := newQuoteRouter(owner, h, func(g *gin.RouterGroup) { g.POST("/quotes/drafts", h.CreateDraftQuote) })

	draft := submittedQuote()
	draft.Status = entities.QuoteStatusDraft
	draft.LineItems = nil
	draft.TotalAmount = money.Zero
	uc.EXPECT().CreateDraftQuote(gomock.Any(), owner, usecase.CreateQuoteCommand{ProjectRef: "proj-1", ContractorRef: "contractor-1"}).Return(draft, nil)

	w := doRequest(r, http.MethodPost, "/v1/quotes/drafts", `{"projectIdentifier":"proj-1","contractorId":"contractor-1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["status"] != "DRAFT" || body["totalAmount"] != "0.00" {
		t.Fatalf("unexpected response body: %s", w.Body.String())
	}
	if items, ok := body["lineItems"].([]any); !ok || len(items) != 0 {
		t.Fatalf("expected empty lineItems array, got %v", body["lineItems"])
	}
}

func TestQuoteHandler_UpdateQuote(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("not editable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(contractor, h, func(g *gin.RouterGroup) { g.PUT("/quotes/:number", h.UpdateQuote) })

		uc.EXPECT().UpdateQuote(gomock.Any(), contractor, "QT-0000001", gomock.Any()).Return(entities.Quote{}, entities.ErrInvalidStateTransition)

		w := doRequest(r, http.MethodPut, "/v1/quotes/QT-0000001", `{"category":"Roofing"}`)
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
	})

	t.Run("category only", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(contractor, h, func(g *gin.RouterGroup) { g.PUT("/quotes/:number", h.UpdateQuote) })

		uc.EXPECT().UpdateQuote(gomock.Any(), contractor, "QT-0000001", gomock.Any()).
			DoAndReturn(func(_ any, _ policy.Principal, _ string, cmd usecase.UpdateQuoteCommand) (entities.Quote, error) {
				if cmd.Category == nil || *cmd.Category != "Roofing" {
					t.Fatalf("expected category Roofing, got %v", cmd.Category)
				}
				if cmd.LineItems != nil {
					t.Fatalf("line items should be untouched, got %v", cmd.LineItems)
				}
				q := submittedQuote()
				q.Status = entities.QuoteStatusDraft
				q.Category = "Roofing"
				return q, nil
			})

		w := doRequest(r, http.MethodPut, "/v1/quotes/QT-0000001", `{"category":"Roofing"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})
}

func TestQuoteHandler_Transitions(t *testing.T) {
	gin.SetMode(gin.TestMode)

	register := func(h *QuoteHandler) func(g *gin.RouterGroup) {
		return func(g *gin.RouterGroup) {
			g.PATCH("/quotes/:number/submit", h.SubmitQuote)
			g.PATCH("/quotes/:number/approve", h.ApproveQuote)
			g.PATCH("/quotes/:number/reject", h.RejectQuote)
			g.PATCH("/quotes/:number/acknowledge", h.AcknowledgeQuote)
		}
	}

	t.Run("submit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(contractor, h, register(h))

		uc.EXPECT().SubmitQuote(gomock.Any(), contractor, "QT-0000001").Return(submittedQuote(), nil)

		w := doRequest(r, http.MethodPatch, "/v1/quotes/QT-0000001/submit", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("approve", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(owner, h, register(h))

		approvedAt := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
		q := submittedQuote()
		q.Status = entities.QuoteStatusApproved
		q.ApprovedBy = owner.ID
		q.ApprovedAt = &approvedAt
		uc.EXPECT().ApproveQuote(gomock.Any(), owner, "QT-0000001").Return(q, nil)

		w := doRequest(r, http.MethodPatch, "/v1/quotes/QT-0000001/approve", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		body := decodeBody(t, w)
		if body["approvedBy"] != "owner-1" || body["approvedAt"] == nil {
			t.Fatalf("unexpected response body: %s", w.Body.String())
		}
	})

	t.Run("approve twice conflicts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(owner, h, register(h))

		uc.EXPECT().ApproveQuote(gomock.Any(), owner, "QT-0000001").Return(entities.Quote{}, entities.ErrInvalidStateTransition)

		w := doRequest(r, http.MethodPatch, "/v1/quotes/QT-0000001/approve", "")
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
		if body := decodeBody(t, w); body["code"] != "INVALID_STATE_TRANSITION" {
			t.Fatalf("unexpected code: %v", body["code"])
		}
	})

	t.Run("reject passes reason", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(owner, h, register(h))

		q := submittedQuote()
		q.Status = entities.QuoteStatusRejected
		q.RejectionReason = "Over budget"
		uc.EXPECT().RejectQuote(gomock.Any(), owner, "QT-0000001", "Over budget").Return(q, nil)

		w := doRequest(r, http.MethodPatch, "/v1/quotes/QT-0000001/reject", `{"reason":"Over budget"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if body := decodeBody(t, w); body["rejectionReason"] != "Over budget" {
			t.Fatalf("unexpected response body: %s", w.Body.String())
		}
	})

	t.Run("reject invalid json", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(owner, h, register(h))

		w := doRequest(r, http.MethodPatch, "/v1/quotes/QT-0000001/reject", "{")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("acknowledge unknown quote", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(customer, h, register(h))

		uc.EXPECT().AcknowledgeQuote(gomock.Any(), customer, "QT-0000404").Return(entities.Quote{}, entities.ErrQuoteNotFound)

		w := doRequest(r, http.MethodPatch, "/v1/quotes/QT-0000404/acknowledge", "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})
}

func TestQuoteHandler_GetQuoteDocument(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("renders pdf", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		renderer := mock_interfaces.NewMockIQuoteDocumentRenderer(ctrl)
		h := NewQuoteHandler(uc, renderer)
		r := newQuoteRouter(owner, h, func(g *gin.RouterGroup) { g.GET("/quotes/:number/pdf", h.GetQuoteDocument) })

		uc.EXPECT().GetByNumber(gomock.Any(), owner, "QT-0000001").Return(submittedQuote(), nil)
		renderer.EXPECT().Render(gomock.Any(), gomock.Any()).DoAndReturn(func(w io.Writer, _ entities.Quote) error {
			_, err := w.Write([]byte("%PDF-1.3 stub"))
			return err
		})
		renderer.EXPECT().ContentType().Return("application/pdf")

		w := doRequest(r, http.MethodGet, "/v1/quotes/QT-0000001/pdf", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
			t.Fatalf("unexpected content type %q", ct)
		}
		if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="QT-0000001.pdf"` {
			t.Fatalf("unexpected content disposition %q", cd)
		}
		if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
			t.Fatalf("unexpected body %q", w.Body.String())
		}
	})

	t.Run("render failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		renderer := mock_interfaces.NewMockIQuoteDocumentRenderer(ctrl)
		h := NewQuoteHandler(uc, renderer)
		r := newQuoteRouter(owner, h, func(g *gin.RouterGroup) { g.GET("/quotes/:number/pdf", h.GetQuoteDocument) })

		uc.EXPECT().GetByNumber(gomock.Any(), owner, "QT-0000001").Return(submittedQuote(), nil)
		renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return(errors.New("font missing"))

		w := doRequest(r, http.MethodGet, "/v1/quotes/QT-0000001/pdf", "")
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
	})
}

func TestQuoteHandler_Reads(t *testing.T) {
	gin.SetMode(gin.TestMode)

	register := func(h *QuoteHandler) func(g *gin.RouterGroup) {
		return func(g *gin.RouterGroup) {
			g.GET("/quotes/my-quotes", h.ListMyQuotes)
			g.GET("/quotes/project/:projectRef", h.ListByProject)
			g.GET("/quotes/lot/:lotRef", h.ListByLot)
			g.GET("/quotes/contractor/:contractorRef", h.ListByContractor)
			g.GET("/quotes/status/:status", h.ListByStatus)
			g.GET("/quotes/admin/all", h.ListAll)
			g.GET("/quotes/admin/submitted", h.ListSubmitted)
			g.GET("/quotes/admin/submitted/project/:projectRef", h.ListSubmittedByProject)
			g.GET("/quotes/:number", h.GetQuote)
		}
	}

	t.Run("get forbidden", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(customer, h, register(h))

		uc.EXPECT().GetByNumber(gomock.Any(), customer, "QT-0000001").Return(entities.Quote{}, entities.ErrUnauthorized)

		w := doRequest(r, http.MethodGet, "/v1/quotes/QT-0000001", "")
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	t.Run("list by project returns array", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(owner, h, register(h))

		uc.EXPECT().ListByProject(gomock.Any(), owner, "proj-1").Return(nil, nil)

		w := doRequest(r, http.MethodGet, "/v1/quotes/project/proj-1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if w.Body.String() != "[]" {
			t.Fatalf("expected empty array, got %s", w.Body.String())
		}
	})

	t.Run("list by lot", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(owner, h, register(h))

		uc.EXPECT().ListByLot(gomock.Any(), owner, "lot-7").Return([]entities.Quote{submittedQuote()}, nil)

		w := doRequest(r, http.MethodGet, "/v1/quotes/lot/lot-7", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("my quotes uses caller id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(contractor, h, register(h))

		uc.EXPECT().ListByContractor(gomock.Any(), contractor, "contractor-1").Return([]entities.Quote{submittedQuote()}, nil)

		w := doRequest(r, http.MethodGet, "/v1/quotes/my-quotes", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("my quotes requires contractor", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(customer, h, register(h))

		w := doRequest(r, http.MethodGet, "/v1/quotes/my-quotes", "")
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	t.Run("list other contractor forbidden", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(contractor, h, register(h))

		uc.EXPECT().ListByContractor(gomock.Any(), contractor, "contractor-2").Return(nil, entities.ErrUnauthorized)

		w := doRequest(r, http.MethodGet, "/v1/quotes/contractor/contractor-2", "")
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	t.Run("list by unknown status", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(owner, h, register(h))

		uc.EXPECT().ListByStatus(gomock.Any(), owner, "PENDING").
			Return(nil, entities.NewValidationError(entities.FieldViolation{Field: "status", Message: `unknown status "PENDING"`}))

		w := doRequest(r, http.MethodGet, "/v1/quotes/status/PENDING", "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("admin all", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(owner, h, register(h))

		uc.EXPECT().ListAll(gomock.Any(), owner).Return([]entities.Quote{submittedQuote()}, nil)

		w := doRequest(r, http.MethodGet, "/v1/quotes/admin/all", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("admin submitted requires owner", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(contractor, h, register(h))

		uc.EXPECT().ListSubmitted(gomock.Any(), contractor).Return(nil, entities.ErrUnauthorized)

		w := doRequest(r, http.MethodGet, "/v1/quotes/admin/submitted", "")
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	t.Run("admin submitted", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(owner, h, register(h))

		uc.EXPECT().ListSubmitted(gomock.Any(), owner).Return([]entities.Quote{submittedQuote()}, nil)

		w := doRequest(r, http.MethodGet, "/v1/quotes/admin/submitted", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("admin submitted by project", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIQuoteUseCase(ctrl)
		h := NewQuoteHandler(uc, nil)
		r := newQuoteRouter(owner, h, register(h))

		uc.EXPECT().ListSubmittedByProject(gomock.Any(), owner, "proj-1").Return([]entities.Quote{submittedQuote()}, nil)

		w := doRequest(r, http.MethodGet, "/v1/quotes/admin/submitted/project/proj-1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var body []map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || len(body) != 1 {
			t.Fatalf("unexpected response body: %s", w.Body.String())
		}
	})
}

func TestMapQuoteError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{entities.ErrInvalidQuoteData, http.StatusBadRequest, "INVALID_QUOTE_DATA"},
		{entities.ErrUnauthorized, http.StatusForbidden, "FORBIDDEN"},
		{entities.ErrQuoteNotFound, http.StatusNotFound, "QUOTE_NOT_FOUND"},
		{entities.ErrInvalidStateTransition, http.StatusConflict, "INVALID_STATE_TRANSITION"},
		{entities.ErrConcurrencyConflict, http.StatusConflict, "CONCURRENT_MODIFICATION"},
		{entities.ErrRetryableAllocation, http.StatusServiceUnavailable, "NUMBER_ALLOCATION_UNAVAILABLE"},
		{entities.ErrSequenceExhausted, http.StatusInternalServerError, "SEQUENCE_EXHAUSTED"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		got := mapQuoteError(tc.err)
		if got.HTTPStatus != tc.status || got.Code != tc.code {
			t.Fatalf("%v: expected %d %s, got %d %s", tc.err, tc.status, tc.code, got.HTTPStatus, got.Code)
		}
	}
}

func TestPing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/v1/ping", Ping)

	w := doRequest(r, http.MethodGet, "/v1/ping", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
