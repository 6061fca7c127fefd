package routes

import (
	"quotes_service/internal/adapter/http/handlers"

	"github.com/gin-gonic/gin"
)

const (
	PathPing   = "/ping"
	PathQuotes = "/quotes"
)

func addPingRoutes(rg *gin.RouterGroup) {
	rg.GET(PathPing, handlers.Ping)
}

func addQuoteRoutes(rg *gin.RouterGroup, quoteHandler *handlers.QuoteHandler) {
	quotes := rg.Group(PathQuotes)
	{
		quotes.POST("", quoteHandler.CreateQuote)
		quotes.POST("/drafts", quoteHandler.CreateDraftQuote)
		quotes.PUT("/:number", quoteHandler.UpdateQuote)
		quotes.PATCH("/:number/submit", quoteHandler.SubmitQuote)
		quotes.PATCH("/:number/approve", quoteHandler.ApproveQuote)
		quotes.PATCH("/:number/reject", quoteHandler.RejectQuote)
		quotes.PATCH("/:number/acknowledge", quoteHandler.AcknowledgeQuote)

		quotes.GET("/my-quotes", quoteHandler.ListMyQuotes)
		quotes.GET("/project/:projectRef", quoteHandler.ListByProject)
		quotes.GET("/lot/:lotRef", quoteHandler.ListByLot)
		quotes.GET("/contractor/:contractorRef", quoteHandler.ListByContractor)
		quotes.GET("/status/:status", quoteHandler.ListByStatus)
		quotes.GET("/:number", quoteHandler.GetQuote)
		quotes.GET("/:number/pdf", quoteHandler.GetQuoteDocument)
	}

	admin := quotes.Group("/admin")
	{
		admin.GET("/all", quoteHandler.ListAll)
		admin.GET("/submitted", quoteHandler.ListSubmitted)
		admin.GET("/submitted/project/:projectRef", quoteHandler.ListSubmittedByProject)
	}
}
