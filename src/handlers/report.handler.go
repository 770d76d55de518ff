package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clinic-ops/src/apperror"
	"clinic-ops/src/export"
	"clinic-ops/src/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	Service *services.ReportService
	Log     *zap.Logger
}

// Inventory - ?category=&low_stock=&format=json|xlsx
func (h *ReportHandler) Inventory(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "xlsx" {
		badRequest(c, "format must be json or xlsx")
		return
	}

	report, err := h.Service.InventoryReport(c.Request.Context(), c.Query("category"), queryBool(c, "low_stock"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	if format == "json" {
		c.JSON(http.StatusOK, gin.H{"data": report})
		return
	}

	f, err := export.InventoryWorkbook(report)
	if err != nil {
		respondError(c, h.Log, apperror.Internal(err, "Failed to build workbook"))
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		respondError(c, h.Log, apperror.Internal(err, "Failed to build workbook"))
		return
	}
	filename := fmt.Sprintf("inventory-%s.xlsx", report.GeneratedAt.Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Transactions - ?start_date=&end_date=
func (h *ReportHandler) Transactions(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	report, err := h.Service.TransactionReport(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (h *ReportHandler) LowStock(c *gin.Context) {
	report, err := h.Service.LowStockReport(c.Request.Context())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (h *ReportHandler) Expiry(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "90"))
	if err != nil {
		badRequest(c, "invalid days")
		return
	}
	report, err := h.Service.ExpiryReport(c.Request.Context(), days)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (h *ReportHandler) Dashboard(c *gin.Context) {
	dash, err := h.Service.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dash})
}
