package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nishantd01/smart-backoffice/models"
	"github.com/nishantd01/smart-backoffice/payment"
	"github.com/nishantd01/smart-backoffice/service"
)

type PaymentController struct {
	leadService *service.LeadService
}

func NewPaymentController(leadService *service.LeadService) *PaymentController {
	return &PaymentController{leadService: leadService}
}

type createSessionRequest struct {
	Package     string   `json:"package"`
	PackageName string   `json:"packageName"`
	Amount      *float64 `json:"amount"`
	Currency    string   `json:"currency"`
	SuccessURL  string   `json:"successUrl"`
	CancelURL   string   `json:"cancelUrl"`
}

type verifyPaymentRequest struct {
	SessionID string `json:"sessionId"`
}

var notPaid = false

// ANY /api/create-session
func (ctl *PaymentController) CreateSession(ctx *gin.Context) {
	if !postOnly(ctx) {
		return
	}

	var req createSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, models.PaymentErrorResponse{Error: "Invalid request body"})
		return
	}

	checkout := payment.CheckoutRequest{
		Package:     req.Package,
		PackageName: req.PackageName,
		Currency:    req.Currency,
		SuccessURL:  req.SuccessURL,
		CancelURL:   req.CancelURL,
		Origin:      ctx.GetHeader("Origin"),
	}
	if req.Amount != nil {
		checkout.Amount = models.NewAmount(*req.Amount)
	}

	res, err := ctl.leadService.CreateCheckout(ctx.Request.Context(), checkout)
	if err != nil {
		ctx.JSON(paymentStatus(err), models.PaymentErrorResponse{Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// ANY /api/verify-payment
func (ctl *PaymentController) VerifyPayment(ctx *gin.Context) {
	if !postOnly(ctx) {
		return
	}

	var req verifyPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, models.PaymentErrorResponse{Paid: &notPaid, Error: "Invalid request body"})
		return
	}

	res, err := ctl.leadService.VerifyPayment(ctx.Request.Context(), req.SessionID)
	if err != nil {
		ctx.JSON(paymentStatus(err), models.PaymentErrorResponse{Paid: &notPaid, Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// postOnly answers preflight and wrong verbs. It reports whether the handler
// should continue.
func postOnly(ctx *gin.Context) bool {
	switch ctx.Request.Method {
	case http.MethodPost:
		return true
	case http.MethodOptions:
		ctx.Status(http.StatusOK)
	default:
		ctx.JSON(http.StatusMethodNotAllowed, models.PaymentErrorResponse{Error: "Method not allowed. Use POST."})
	}
	return false
}

func paymentStatus(err error) int {
	if errors.Is(err, payment.ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
