package router

import (
	"github.com/RovierrHQ/rovierr/internal/config"
	"github.com/RovierrHQ/rovierr/internal/handler"
	"github.com/RovierrHQ/rovierr/internal/middleware"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter configures the Gin engine and the API route table.
func SetupRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	api := r.Group("/api")

	jwtSecret := cfg.JWT.Secret

	// registration and login need no auth
	authHandler := handler.NewAuthHandler(db, jwtSecret, cfg.JWT.ExpireHours)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(
		middleware.AuthMiddleware(jwtSecret, db),
		middleware.AuditMiddleware(db),
	)

	protected.GET("/me", handler.GetMe)
	protected.GET("/audit", handler.NewAuditHandler(db).ListAuditLogs)
	protected.POST("/profile", handler.UpdateProfile(db))
	protected.POST("/profile/password", handler.ChangePassword(db))

	clubHandler := handler.NewClubHandler(db)
	protected.POST("/clubs", clubHandler.CreateClub)
	protected.GET("/clubs", clubHandler.ListClubs)
	protected.POST("/clubs/:id/join", clubHandler.JoinClub)
	protected.POST("/categories", clubHandler.CreateCategory)
	protected.GET("/categories", clubHandler.ListCategories)
	protected.POST("/events", clubHandler.CreateEvent)
	protected.GET("/events", clubHandler.ListEvents)

	expenseHandler := handler.NewExpenseHandler(db)
	protected.POST("/accounts", expenseHandler.CreateAccount)
	protected.GET("/accounts", expenseHandler.ListAccounts)
	protected.POST("/accounts/:id/archive", expenseHandler.ArchiveAccount)
	protected.POST("/expenses", expenseHandler.RecordExpense)
	protected.POST("/reimbursements", expenseHandler.RequestReimbursement)
	protected.POST("/reimbursements/:id/approve", expenseHandler.ApproveReimbursement)
	protected.POST("/reimbursements/:id/pay", expenseHandler.PayReimbursement)
	protected.POST("/loans", expenseHandler.RecordLoan)
	protected.POST("/transfers", expenseHandler.Transfer)
	protected.GET("/transactions", expenseHandler.ListTransactions)
	protected.POST("/transactions/:id/attachments", expenseHandler.AttachReceipt)
	protected.POST("/events/:id/payments", expenseHandler.RecordEventPayment)
	protected.GET("/balance", expenseHandler.NetBalance)

	reportHandler := handler.NewReportHandler(db)
	protected.GET("/clubs/:id/ledger", reportHandler.ClubLedger)
	protected.GET("/clubs/:id/ledger/export/csv", reportHandler.ExportCSV)
	protected.GET("/clubs/:id/ledger/export/xlsx", reportHandler.ExportXLSX)

	formHandler := handler.NewFormHandler(db)
	protected.POST("/forms", formHandler.CreateForm)
	protected.GET("/forms", formHandler.ListForms)
	protected.GET("/forms/:id", formHandler.GetForm)
	protected.PUT("/forms/:id", formHandler.UpdateForm)
	protected.POST("/forms/:id/pages", formHandler.AddPage)
	protected.POST("/forms/:id/questions", formHandler.AddQuestion)
	protected.PUT("/forms/:id/questions/:qid", formHandler.UpdateQuestion)
	protected.DELETE("/forms/:id/questions/:qid", formHandler.DeleteQuestion)
	protected.POST("/forms/:id/publish", formHandler.Publish)
	protected.POST("/forms/:id/close", formHandler.Close)
	protected.POST("/forms/:id/archive", formHandler.Archive)
	protected.GET("/forms/:id/validate", formHandler.ValidateLogic)
	protected.POST("/forms/:id/visibility", formHandler.Visibility)
	protected.POST("/forms/:id/submit", formHandler.Submit)

	return r
}
