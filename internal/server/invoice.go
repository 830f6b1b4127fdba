package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/tradebooks/internal/invoice/domain"
)

func (s *Server) createInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: err.Error()}})
		return
	}

	invoice, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func (s *Server) getInvoice(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: "invalid invoice id"}})
		return
	}

	invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (s *Server) listInvoices(c *gin.Context) {
	var req invoicedomain.ListInvoiceRequest
	if raw := strings.TrimSpace(c.Query("customer_id")); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: "invalid customer_id"}})
			return
		}
		req.CustomerID = &id
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := invoicedomain.InvoiceStatus(strings.ToUpper(raw))
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: "invalid status"}})
			return
		}
		req.Status = &status
	}

	invoices, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (s *Server) updateInvoiceItems(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: "invalid invoice id"}})
		return
	}

	var body struct {
		Items []invoicedomain.CreateItem `json:"items"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: err.Error()}})
		return
	}

	invoice, err := s.invoiceSvc.UpdateItems(c.Request.Context(), id, body.Items)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (s *Server) transitionInvoice(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: "invalid invoice id"}})
		return
	}

	var body struct {
		Status string `json:"status"`
		Actor  string `json:"actor"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: err.Error()}})
		return
	}

	newStatus := invoicedomain.InvoiceStatus(strings.ToUpper(strings.TrimSpace(body.Status)))
	if err := s.invoiceSvc.Transition(c.Request.Context(), id, newStatus, body.Actor); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": newStatus})
}

func (s *Server) previewInvoiceNumber(c *gin.Context) {
	shopID, err := parseID(c.Query("shop_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: "invalid shop_id"}})
		return
	}
	customerID, err := parseID(c.Query("customer_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: "invalid customer_id"}})
		return
	}

	number, err := s.invoiceSvc.PreviewNumber(c.Request.Context(), shopID, customerID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"number": number})
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}
