package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nexweave/vendordesk_backend/models"
	"github.com/nexweave/vendordesk_backend/utils"
)

func CreatePurchaseOrder(c *gin.Context) {
	var input models.NewPurchaseOrder
	if !bindJSON(c, &input) {
		return
	}
	po, err := models.CreatePurchaseOrder(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, po)
}

func GetPurchaseOrder(c *gin.Context) {
	po, err := models.GetPurchaseOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, po)
}

func ListPurchaseOrders(c *gin.Context) {
	var filters []utils.Filter
	if statusType := c.Query("status_type"); statusType != "" {
		filters = append(filters, utils.Filter{Cond: "status_type = ?", Values: []interface{}{statusType}})
	}
	if quotationId := c.Query("quotation_id"); quotationId != "" {
		filters = append(filters, utils.Filter{Cond: "quotation_id = ?", Values: []interface{}{quotationId}})
	}
	pos, err := models.GetPurchaseOrders(c.Request.Context(), filters...)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pos)
}

func ReviewPurchaseOrder(c *gin.Context) {
	var input models.ReviewPurchaseOrderInput
	if !bindJSON(c, &input) {
		return
	}
	po, err := models.ReviewPurchaseOrder(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, po)
}

func DeletePurchaseOrder(c *gin.Context) {
	if err := models.DeletePurchaseOrder(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}
