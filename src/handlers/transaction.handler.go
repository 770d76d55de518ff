package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clinic-ops/src/receipt"
	"clinic-ops/src/repositories"
	"clinic-ops/src/requests"
	"clinic-ops/src/services"
)

type TransactionHandler struct {
	Service *services.TransactionService
	Printer receipt.Printer
	Clinic  receipt.Clinic
	Log     *zap.Logger
}

// ============ POS ============

// Cart - Price the cart without touching stock
func (h *TransactionHandler) Cart(c *gin.Context) {
	var req requests.CartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	summary, err := h.Service.CartSummary(c.Request.Context(), req.Lines())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (h *TransactionHandler) Checkout(c *gin.Context) {
	var req requests.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	txn, err := h.Service.Checkout(c.Request.Context(), req.ToInput(), actor(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Transaction completed successfully",
		"data":    txn,
	})
}

// ============ TRANSACTIONS ============

// List - ?status=&search=&patient_id=&start_date=&end_date=&page=&limit=
func (h *TransactionHandler) List(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	page, limit := pagination(c, 100)
	filter := repositories.TransactionFilter{
		Status:    c.Query("status"),
		Search:    c.Query("search"),
		PatientID: c.Query("patient_id"),
		From:      from,
		To:        to,
		Page:      page,
		Limit:     limit,
	}

	transactions, total, err := h.Service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondList(c, transactions, page, limit, total)
}

func (h *TransactionHandler) Stats(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	stats, err := h.Service.Stats(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// DailySummary - ?date=YYYY-MM-DD, today when absent
func (h *TransactionHandler) DailySummary(c *gin.Context) {
	var day time.Time
	if s := c.Query("date"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			badRequest(c, "invalid date format. Use YYYY-MM-DD")
			return
		}
		day = parsed
	}
	stats, err := h.Service.DailySummary(c.Request.Context(), day)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// Get - By id or transaction_id
func (h *TransactionHandler) Get(c *gin.Context) {
	txn, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": txn})
}

func (h *TransactionHandler) Cancel(c *gin.Context) {
	var req requests.CancelTransactionRequest
	// The body is optional; an empty one means no reason
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return
	}
	txn, err := h.Service.Cancel(c.Request.Context(), c.Param("id"), req.Reason, actor(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Transaction cancelled successfully",
		"data":    txn,
	})
}

// Print - Send the receipt to the configured printer
func (h *TransactionHandler) Print(c *gin.Context) {
	txn, err := h.Service.MarkPrinted(c.Request.Context(), c.Param("id"), h.Printer, h.Clinic)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Receipt printed",
		"data":    txn,
	})
}

// dateRange reads start_date and end_date (YYYY-MM-DD or RFC3339). A plain
// end date covers the whole day.
func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	var from, to time.Time
	if s := c.Query("start_date"); s != "" {
		t, err := requests.ParseDate(&s)
		if err != nil {
			badRequest(c, err.Error())
			return from, to, false
		}
		from = *t
	}
	if s := c.Query("end_date"); s != "" {
		t, err := requests.ParseDate(&s)
		if err != nil {
			badRequest(c, err.Error())
			return from, to, false
		}
		to = *t
		if len(s) == len("2006-01-02") {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
	}
	return from, to, true
}
