package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nexweave/vendordesk_backend/models"
	"github.com/nexweave/vendordesk_backend/utils"
)

func CreateQuotation(c *gin.Context) {
	var input models.NewQuotation
	if !bindJSON(c, &input) {
		return
	}
	quotation, err := models.CreateQuotation(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quotation)
}

func GetQuotation(c *gin.Context) {
	quotation, err := models.GetQuotation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quotation)
}

func ListQuotations(c *gin.Context) {
	var filters []utils.Filter
	if status := c.Query("status"); status != "" {
		filters = append(filters, utils.Filter{Cond: "status = ?", Values: []interface{}{status}})
	}
	if clientId := c.Query("client_id"); clientId != "" {
		filters = append(filters, utils.Filter{Cond: "client_id = ?", Values: []interface{}{clientId}})
	}
	quotations, err := models.GetQuotations(c.Request.Context(), filters...)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quotations)
}

func UpdateQuotation(c *gin.Context) {
	var input models.NewQuotation
	if !bindJSON(c, &input) {
		return
	}
	quotation, err := models.UpdateQuotation(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quotation)
}

func UpdateQuotationStatus(c *gin.Context) {
	var input models.UpdateQuotationStatusInput
	if !bindJSON(c, &input) {
		return
	}
	quotation, err := models.UpdateQuotationStatus(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quotation)
}

func DeleteQuotation(c *gin.Context) {
	if err := models.DeleteQuotation(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}
