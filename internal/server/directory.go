package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/tradebooks/internal/customer/domain"
	inventorydomain "github.com/smallbiznis/tradebooks/internal/inventory/domain"
	productdomain "github.com/smallbiznis/tradebooks/internal/product/domain"
	shopdomain "github.com/smallbiznis/tradebooks/internal/shop/domain"
	"gorm.io/gorm"
)

func (s *Server) createShop(c *gin.Context) {
	var shop shopdomain.Shop
	if err := c.ShouldBindJSON(&shop); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: err.Error()}})
		return
	}
	if strings.TrimSpace(shop.Code) == "" {
		_ = c.Error(shopdomain.ErrInvalidCode)
		return
	}

	if err := s.shops.Insert(c.Request.Context(), &shop); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, shop)
}

func (s *Server) listShops(c *gin.Context) {
	shops, err := s.shops.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shops": shops})
}

func (s *Server) createCustomer(c *gin.Context) {
	var customer customerdomain.Customer
	if err := c.ShouldBindJSON(&customer); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: err.Error()}})
		return
	}
	if strings.TrimSpace(customer.Code) == "" {
		_ = c.Error(customerdomain.ErrInvalidCode)
		return
	}

	if err := s.customers.Insert(c.Request.Context(), &customer); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (s *Server) listCustomers(c *gin.Context) {
	customers, err := s.customers.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

func (s *Server) createProduct(c *gin.Context) {
	var product productdomain.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: err.Error()}})
		return
	}
	if strings.TrimSpace(product.Barcode) == "" {
		_ = c.Error(productdomain.ErrInvalidBarcode)
		return
	}

	if err := s.products.Insert(c.Request.Context(), &product); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (s *Server) listProducts(c *gin.Context) {
	products, err := s.products.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

type addStockBody struct {
	Barcode   string          `json:"barcode"`
	Quantity  decimal.Decimal `json:"quantity"`
	ShopID    string          `json:"shop_id"`
	Actor     string          `json:"actor,omitempty"`
	Reference string          `json:"reference,omitempty"`
	Notes     string          `json:"notes,omitempty"`
}

func (s *Server) addStock(c *gin.Context) {
	var body addStockBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: err.Error()}})
		return
	}

	shopID, err := parseID(body.ShopID)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: "invalid shop_id"}})
		return
	}

	ctx := c.Request.Context()
	var remaining decimal.Decimal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		remaining, txErr = s.inventorySvc.AddStock(ctx, tx, inventorydomain.AddStockRequest{
			Barcode:         body.Barcode,
			Quantity:        body.Quantity,
			ShopID:          shopID,
			Actor:           body.Actor,
			ReferenceType:   "manual",
			ReferenceID:     s.genID.Generate(),
			ReferenceNumber: body.Reference,
			Notes:           body.Notes,
		})
		return txErr
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"barcode": body.Barcode, "quantity": remaining})
}
