package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nishantd01/smart-backoffice/models"
	"github.com/nishantd01/smart-backoffice/service"
)

type LeadController struct {
	leadService *service.LeadService
	storeID     string
	now         func() time.Time
}

// NewLeadController serves the router. storeID is echoed by the health check.
func NewLeadController(leadService *service.LeadService, storeID string) *LeadController {
	return &LeadController{leadService: leadService, storeID: storeID, now: time.Now}
}

// POST /
// Every outcome is answered with 200; failures carry success=false.
func (ctl *LeadController) Ingest(ctx *gin.Context) {
	payload, err := service.PayloadFromRequest(ctx.Request)
	if err != nil {
		ctx.JSON(http.StatusOK, models.IngestResponse{Success: false, Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, ctl.leadService.Handle(ctx.Request.Context(), payload, ctx.GetHeader("Origin")))
}

// GET /
func (ctl *LeadController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, models.HealthResponse{
		Message:       "Lead Collection API is running",
		Status:        "OK",
		Timestamp:     ctl.now().UTC().Format(time.RFC3339),
		SpreadsheetID: ctl.storeID,
	})
}

// OPTIONS /
func (ctl *LeadController) Options(ctx *gin.Context) {
	ctx.Status(http.StatusOK)
}
