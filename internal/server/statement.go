package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const statementDateLayout = "2006-01-02"

func (s *Server) buildStatement(c *gin.Context) {
	customerID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: "invalid customer id"}})
		return
	}

	start, err := time.Parse(statementDateLayout, c.Query("start_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: "start_date must be YYYY-MM-DD"}})
		return
	}
	end, err := time.Parse(statementDateLayout, c.Query("end_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "validation_error", Message: "end_date must be YYYY-MM-DD"}})
		return
	}

	statement, err := s.statementSvc.Build(c.Request.Context(), customerID, start, end)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, statement)
}
