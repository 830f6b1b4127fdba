package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/tradebooks/internal/payment/domain"
)

func (s *Server) recordPayment(c *gin.Context) {
	invoiceID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: "invalid invoice id"}})
		return
	}

	var req paymentdomain.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: err.Error()}})
		return
	}
	req.InvoiceID = invoiceID

	payment, err := s.paymentSvc.Record(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (s *Server) listInvoicePayments(c *gin.Context) {
	invoiceID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: "invalid invoice id"}})
		return
	}

	payments, err := s.paymentSvc.ListByInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (s *Server) reversePayment(c *gin.Context) {
	paymentID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: "invalid payment id"}})
		return
	}

	if err := s.paymentSvc.Reverse(c.Request.Context(), paymentID, c.GetHeader("X-Actor")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reversed": true})
}
