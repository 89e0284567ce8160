package routes

import (
	"github.com/gin-gonic/gin"

	handler "fee-reconciliation-backend/internal/handlers"
	"fee-reconciliation-backend/internal/reconciliation"
	"fee-reconciliation-backend/internal/verification"
)

func RegisterRoutes(r *gin.Engine, svc *reconciliation.Service, engine *verification.Engine) {
	reconHandler := handler.NewReconciliationHandler(svc, engine)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Reconciliation session routes
	recon := api.Group("/reconciliation")
	recon.POST("/upload", reconHandler.UploadStatement)
	recon.POST("/:sessionId/match", reconHandler.RunMatch)
	recon.GET("/:sessionId/suggestions", reconHandler.GetSuggestions)
	recon.POST("/repair", reconHandler.Repair)

	// Transaction-level routes
	tx := api.Group("/transactions")
	tx.GET("/pending", reconHandler.ListPendingTransactions)
	tx.POST("/:id/approve", reconHandler.ApproveTransaction)
	tx.POST("/:id/reject", reconHandler.RejectTransaction)

	// Invoice routes
	invoices := api.Group("/invoices")
	{
		invoices.POST("", reconHandler.CreateInvoice)
		invoices.POST("/:id/pay", reconHandler.SubmitPayment)
	}
}
