package router

import (
	"sacco-ledger/internal/app/handlers"
	"sacco-ledger/internal/app/middleware"
	"sacco-ledger/internal/pkg/consts"
	"sacco-ledger/internal/service/compliance"
	"sacco-ledger/internal/service/deposits"
	"sacco-ledger/internal/service/guarantors"
	"sacco-ledger/internal/service/loans"
	"sacco-ledger/internal/service/members"
	"sacco-ledger/internal/service/welfare"
	"sacco-ledger/internal/service/withdrawals"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
)

// Services are the workflow entry points exposed over HTTP.
type Services struct {
	Members     members.MemberServiceInterface
	Loans       loans.LoanServiceInterface
	Guarantors  guarantors.GuarantorServiceInterface
	Withdrawals withdrawals.WithdrawalServiceInterface
	Deposits    deposits.DepositServiceInterface
	Welfare     welfare.WelfareServiceInterface
	Compliance  compliance.ComplianceServiceInterface
}

func SetupRouter(serviceName string, svcs Services) *gin.Engine {
	server := gin.Default()
	server.Use(otelgin.Middleware(serviceName))
	server.Use(middleware.NewMetricMiddleware(otel.Meter(serviceName)))
	server.Use(middleware.AttachRequestContext())

	api := server.Group(consts.APIBasePath)

	healthCheckHandler := handlers.NewHealthCheckHandler()
	api.GET("/health", healthCheckHandler.HealthCheck)

	memberHandler := handlers.NewMemberHandler(svcs.Members)
	api.POST("/members", memberHandler.Register)
	api.GET("/members/:id", memberHandler.Get)
	api.POST("/members/:id/activate", memberHandler.Activate)
	api.POST("/members/:id/freeze", memberHandler.Freeze)
	api.GET("/wallets/:memberId", memberHandler.Wallet)

	loanHandler := handlers.NewLoanHandler(svcs.Loans)
	guarantorHandler := handlers.NewGuarantorHandler(svcs.Guarantors)
	loanRoutes := api.Group("/loans")
	loanRoutes.GET("/eligibility", loanHandler.Eligibility)
	loanRoutes.POST("", loanHandler.Apply)
	loanRoutes.GET("", loanHandler.List)
	loanRoutes.GET("/:id", loanHandler.Get)
	loanRoutes.POST("/:id/verify", loanHandler.Verify)
	loanRoutes.POST("/:id/approve", loanHandler.Approve)
	loanRoutes.POST("/:id/reject", loanHandler.Reject)
	loanRoutes.POST("/:id/disburse", loanHandler.Disburse)
	loanRoutes.POST("/:id/repay", loanHandler.Repay)
	loanRoutes.POST("/:id/notes", loanHandler.AddNote)
	loanRoutes.POST("/:id/guarantors", loanHandler.InviteGuarantor)
	loanRoutes.GET("/:id/guarantors", guarantorHandler.ListForLoan)

	guarantorRoutes := api.Group("/guarantors")
	guarantorRoutes.GET("/incoming", guarantorHandler.Incoming)
	guarantorRoutes.POST("/:id/check", guarantorHandler.Check)
	guarantorRoutes.POST("/:id/notify", guarantorHandler.Notify)
	guarantorRoutes.POST("/:id/respond", guarantorHandler.Respond)

	withdrawalHandler := handlers.NewWithdrawalHandler(svcs.Withdrawals)
	withdrawalRoutes := api.Group("/withdrawals")
	withdrawalRoutes.POST("", withdrawalHandler.Request)
	withdrawalRoutes.GET("", withdrawalHandler.List)
	withdrawalRoutes.GET("/:id", withdrawalHandler.Get)
	withdrawalRoutes.POST("/:id/verify", withdrawalHandler.Verify)
	withdrawalRoutes.POST("/:id/approve", withdrawalHandler.Approve)
	withdrawalRoutes.POST("/:id/disburse", withdrawalHandler.Disburse)

	depositHandler := handlers.NewDepositHandler(svcs.Deposits)
	api.POST("/deposits/manual", depositHandler.RecordManual)
	api.POST("/deposits/gateway", depositHandler.InitiateGateway)
	api.POST("/deposits/callback", depositHandler.Callback)

	welfareHandler := handlers.NewWelfareHandler(svcs.Welfare)
	api.POST("/welfare-claims", welfareHandler.FileClaim)
	api.GET("/welfare-claims", welfareHandler.List)
	api.POST("/welfare-claims/:id/review", welfareHandler.Review)

	complianceHandler := handlers.NewComplianceHandler(svcs.Compliance)
	api.POST("/compliance/sweep", complianceHandler.Sweep)

	return server
}
