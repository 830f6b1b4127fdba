package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/tradebooks/internal/customer/domain"
	inventorydomain "github.com/smallbiznis/tradebooks/internal/inventory/domain"
	invoicedomain "github.com/smallbiznis/tradebooks/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/tradebooks/internal/payment/domain"
	productdomain "github.com/smallbiznis/tradebooks/internal/product/domain"
	quotationdomain "github.com/smallbiznis/tradebooks/internal/quotation/domain"
	sequencedomain "github.com/smallbiznis/tradebooks/internal/sequence/domain"
	shopdomain "github.com/smallbiznis/tradebooks/internal/shop/domain"
	statementdomain "github.com/smallbiznis/tradebooks/internal/statement/domain"
	"github.com/smallbiznis/tradebooks/internal/tax"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status, kind := classify(err)
		c.JSON(status, errorResponse{Error: errorPayload{Type: kind, Message: err.Error()}})
	}
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, shopdomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, quotationdomain.ErrNotFound):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, invoicedomain.ErrTerminalStatus),
		errors.Is(err, paymentdomain.ErrInvoiceTerminal),
		errors.Is(err, quotationdomain.ErrAlreadyConverted):
		return http.StatusConflict, "invalid_status_transition"

	case errors.Is(err, invoicedomain.ErrConflict),
		errors.Is(err, sequencedomain.ErrConflict):
		return http.StatusConflict, "conflict"

	case errors.Is(err, inventorydomain.ErrInsufficientStock):
		return http.StatusConflict, "insufficient_stock"

	case errors.Is(err, tax.ErrTotalsMismatch),
		errors.Is(err, statementdomain.ErrReconciliation):
		return http.StatusInternalServerError, "arithmetic_invariant_violation"

	case errors.Is(err, invoicedomain.ErrInvalidStatus),
		errors.Is(err, invoicedomain.ErrNoItems),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrOverpayment),
		errors.Is(err, statementdomain.ErrInvalidPeriod),
		errors.Is(err, tax.ErrNoLines),
		errors.Is(err, tax.ErrInvalidQuantity),
		errors.Is(err, tax.ErrInvalidRate),
		errors.Is(err, tax.ErrInvalidPercent),
		errors.Is(err, inventorydomain.ErrInvalidQuantity),
		errors.Is(err, inventorydomain.ErrUnknownBarcode),
		errors.Is(err, shopdomain.ErrInvalidCode),
		errors.Is(err, customerdomain.ErrInvalidCode),
		errors.Is(err, productdomain.ErrInvalidBarcode):
		return http.StatusBadRequest, "validation_error"
	}

	return http.StatusInternalServerError, "internal_error"
}
