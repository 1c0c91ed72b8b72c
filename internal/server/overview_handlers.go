package server

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	overviewdomain "github.com/civicgrid/civicbill/internal/overview/domain"
	"github.com/gin-gonic/gin"
)

// GetOverview computes the cross-customer billing picture for a period.
// format=csv streams the per-service breakdown for spreadsheet import.
func (s *Server) GetOverview(c *gin.Context) {
	topN := 0
	if raw := strings.TrimSpace(c.Query("top")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			AbortWithError(c, overviewdomain.ErrInvalidPeriod)
			return
		}
		topN = parsed
	}

	overview, err := s.overviewSvc.ComputeOverview(c.Request.Context(), overviewdomain.ComputeRequest{
		Period: c.Query("period"),
		TopN:   topN,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if strings.EqualFold(c.Query("format"), "csv") {
		s.writeOverviewCSV(c, overview)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (s *Server) writeOverviewCSV(c *gin.Context, overview *overviewdomain.Overview) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename="billing-overview-%s.csv"`, overview.Period))
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"period", "service_type", "quantity", "amount_minor", "currency", "percent"})
	for _, entry := range overview.Breakdown {
		_ = w.Write([]string{
			overview.Period,
			string(entry.ServiceType),
			strconv.FormatInt(entry.Quantity, 10),
			strconv.FormatInt(entry.AmountPaise, 10),
			overview.Currency,
			strconv.FormatFloat(entry.Percent, 'f', 2, 64),
		})
	}
	w.Flush()
}
