package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	quotationdomain "github.com/smallbiznis/tradebooks/internal/quotation/domain"
)

func (s *Server) createQuotation(c *gin.Context) {
	var req quotationdomain.CreateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: err.Error()}})
		return
	}

	quotation, err := s.quotationSvc.Create(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, quotation)
}

func (s *Server) getQuotation(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: "invalid quotation id"}})
		return
	}

	quotation, err := s.quotationSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, quotation)
}

func (s *Server) listQuotations(c *gin.Context) {
	var customerID *snowflake.ID
	if raw := strings.TrimSpace(c.Query("customer_id")); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: "invalid customer_id"}})
			return
		}
		customerID = &id
	}

	quotations, err := s.quotationSvc.List(c.Request.Context(), customerID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotations": quotations})
}

func (s *Server) convertQuotation(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: "invalid quotation id"}})
		return
	}

	invoice, err := s.quotationSvc.ConvertToInvoice(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}
