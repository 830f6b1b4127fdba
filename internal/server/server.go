package server

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tradebooks/internal/config"
	customerdomain "github.com/smallbiznis/tradebooks/internal/customer/domain"
	inventorydomain "github.com/smallbiznis/tradebooks/internal/inventory/domain"
	invoicedomain "github.com/smallbiznis/tradebooks/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/tradebooks/internal/payment/domain"
	productdomain "github.com/smallbiznis/tradebooks/internal/product/domain"
	quotationdomain "github.com/smallbiznis/tradebooks/internal/quotation/domain"
	shopdomain "github.com/smallbiznis/tradebooks/internal/shop/domain"
	statementdomain "github.com/smallbiznis/tradebooks/internal/statement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(ErrorHandlingMiddleware())
	return engine
}

type ServerParam struct {
	fx.In

	Engine       *gin.Engine
	Log          *zap.Logger
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	InvoiceSvc   invoicedomain.Service
	PaymentSvc   paymentdomain.Service
	QuotationSvc quotationdomain.Service
	StatementSvc statementdomain.Builder
	InventorySvc inventorydomain.Service
	Shops        shopdomain.Repository
	Customers    customerdomain.Repository
	Products     productdomain.Repository
}

type Server struct {
	engine       *gin.Engine
	log          *zap.Logger
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	invoiceSvc   invoicedomain.Service
	paymentSvc   paymentdomain.Service
	quotationSvc quotationdomain.Service
	statementSvc statementdomain.Builder
	inventorySvc inventorydomain.Service
	shops        shopdomain.Repository
	customers    customerdomain.Repository
	products     productdomain.Repository
}

func NewServer(p ServerParam) *Server {
	return &Server{
		engine:       p.Engine,
		log:          p.Log.Named("server"),
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		invoiceSvc:   p.InvoiceSvc,
		paymentSvc:   p.PaymentSvc,
		quotationSvc: p.QuotationSvc,
		statementSvc: p.StatementSvc,
		inventorySvc: p.InventorySvc,
		shops:        p.Shops,
		customers:    p.Customers,
		products:     p.Products,
	}
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.POST("/invoices", s.createInvoice)
	api.GET("/invoices", s.listInvoices)
	api.GET("/invoices/:id", s.getInvoice)
	api.PUT("/invoices/:id/items", s.updateInvoiceItems)
	api.POST("/invoices/:id/status", s.transitionInvoice)
	api.GET("/invoices/preview-number", s.previewInvoiceNumber)

	api.POST("/invoices/:id/payments", s.recordPayment)
	api.GET("/invoices/:id/payments", s.listInvoicePayments)
	api.DELETE("/payments/:id", s.reversePayment)

	api.POST("/quotations", s.createQuotation)
	api.GET("/quotations", s.listQuotations)
	api.GET("/quotations/:id", s.getQuotation)
	api.POST("/quotations/:id/convert", s.convertQuotation)

	api.GET("/customers/:id/statement", s.buildStatement)

	api.POST("/shops", s.createShop)
	api.GET("/shops", s.listShops)
	api.POST("/customers", s.createCustomer)
	api.GET("/customers", s.listCustomers)
	api.POST("/products", s.createProduct)
	api.GET("/products", s.listProducts)
	api.POST("/stock", s.addStock)
}

func RunHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{Addr: s.cfg.HTTPAddr, Handler: s.engine}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			s.log.Info("http server starting", zap.String("addr", s.cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterAPIRoutes() }),
	fx.Invoke(RunHTTP),
)
