package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clinic-ops/src/repositories"
	"clinic-ops/src/requests"
	"clinic-ops/src/services"
)

type BillHandler struct {
	Service   *services.BillingService
	Inventory *services.InventoryService
	Log       *zap.Logger
}

func (h *BillHandler) List(c *gin.Context) {
	page, limit := pagination(c, 50)
	filter := repositories.BillFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	}
	bills, total, err := h.Service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondList(c, bills, page, limit, total)
}

// Get - By id or bill number
func (h *BillHandler) Get(c *gin.Context) {
	bill, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": bill})
}

func (h *BillHandler) Create(c *gin.Context) {
	var req requests.BillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	bill, err := h.Service.CreateOrUpdate(c.Request.Context(), "", req.ToPatch(), actor(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Bill created successfully",
		"data":    bill,
	})
}

func (h *BillHandler) Update(c *gin.Context) {
	var req requests.BillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	bill, err := h.Service.CreateOrUpdate(c.Request.Context(), c.Param("id"), req.ToPatch(), actor(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Bill updated successfully",
		"data":    bill,
	})
}

func (h *BillHandler) UpdateStatus(c *gin.Context) {
	var req requests.BillStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	bill, err := h.Service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, actor(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Bill status updated",
		"data":    bill,
	})
}

func (h *BillHandler) Delete(c *gin.Context) {
	if err := h.Service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bill deleted successfully"})
}

// Print - Cumulative view up to ?section= (whole bill when absent)
func (h *BillHandler) Print(c *gin.Context) {
	view, err := h.Service.View(c.Request.Context(), c.Param("id"), c.Query("section"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (h *BillHandler) Procedures(c *gin.Context) {
	procedures, err := h.Service.ListProcedures(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": procedures})
}

func (h *BillHandler) CreateProcedure(c *gin.Context) {
	var req requests.ProcedureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	procedure, err := h.Service.CreateProcedure(c.Request.Context(), req.ToInput())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Procedure created successfully",
		"data":    procedure,
	})
}

// SearchDrugs - Inventory search for the drug picker
func (h *BillHandler) SearchDrugs(c *gin.Context) {
	items, err := h.Inventory.Search(c.Request.Context(), c.Query("q"), 20)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}
