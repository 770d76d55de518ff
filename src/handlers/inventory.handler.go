package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clinic-ops/src/repositories"
	"clinic-ops/src/requests"
	"clinic-ops/src/services"
)

type InventoryHandler struct {
	Service *services.InventoryService
	Log     *zap.Logger
}

// ============ GET ENDPOINTS ============

// List - Get items with filters and pagination
func (h *InventoryHandler) List(c *gin.Context) {
	page, limit := pagination(c, 50)
	filter := repositories.ItemFilter{
		Category:        c.Query("category"),
		Search:          c.Query("search"),
		LowStock:        queryBool(c, "low_stock"),
		Expired:         queryBool(c, "expired"),
		IncludeInactive: queryBool(c, "include_inactive"),
		Page:            page,
		Limit:           limit,
	}

	items, total, err := h.Service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondList(c, items, page, limit, total)
}

func (h *InventoryHandler) Stats(c *gin.Context) {
	stats, err := h.Service.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (h *InventoryHandler) LowStock(c *gin.Context) {
	items, err := h.Service.LowStock(c.Request.Context())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "count": len(items)})
}

// Expiring - Items expiring within ?days= (default 90)
func (h *InventoryHandler) Expiring(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "90"))
	if err != nil {
		badRequest(c, "invalid days")
		return
	}
	items, err := h.Service.ExpiringWithin(c.Request.Context(), days)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "count": len(items)})
}

func (h *InventoryHandler) Expired(c *gin.Context) {
	items, err := h.Service.Expired(c.Request.Context())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "count": len(items)})
}

// Search - Active, in-stock items for the POS and drug pickers
func (h *InventoryHandler) Search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.Service.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (h *InventoryHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	item, err := h.Service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (h *InventoryHandler) GetBySKU(c *gin.Context) {
	item, err := h.Service.GetBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (h *InventoryHandler) GetByBarcode(c *gin.Context) {
	item, err := h.Service.GetByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

// Movements - Ledger of quantity changes for one item
func (h *InventoryHandler) Movements(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	page, limit := pagination(c, 50)
	movements, total, err := h.Service.Movements(c.Request.Context(), id, page, limit)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondList(c, movements, page, limit, total)
}

// ============ MUTATIONS ============

func (h *InventoryHandler) Create(c *gin.Context) {
	var req requests.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	in, err := req.ToInput()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	item, err := h.Service.Create(c.Request.Context(), in, actor(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Item created successfully",
		"data":    item,
	})
}

func (h *InventoryHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req requests.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	in, err := req.ToInput()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	item, err := h.Service.Update(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Item updated successfully",
		"data":    item,
	})
}

// AdjustQuantity - Apply a signed change to the stored quantity
func (h *InventoryHandler) AdjustQuantity(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req requests.AdjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	item, err := h.Service.AdjustQuantity(c.Request.Context(), id, req.Change, req.Reason, actor(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Quantity updated successfully",
		"data":    item,
	})
}

// Deactivate - Soft delete
func (h *InventoryHandler) Deactivate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.Service.Deactivate(c.Request.Context(), id, actor(c)); err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item deactivated successfully"})
}
