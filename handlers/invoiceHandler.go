package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nexweave/vendordesk_backend/models"
	"github.com/nexweave/vendordesk_backend/utils"
)

func CreateInvoice(c *gin.Context) {
	var input models.NewInvoice
	if !bindJSON(c, &input) {
		return
	}
	invoice, err := models.CreateInvoice(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func GetInvoice(c *gin.Context) {
	invoice, err := models.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func ListInvoices(c *gin.Context) {
	var filters []utils.Filter
	if status := c.Query("status"); status != "" {
		filters = append(filters, utils.Filter{Cond: "status = ?", Values: []interface{}{status}})
	}
	if subscriptionId := c.Query("subscription_id"); subscriptionId != "" {
		filters = append(filters, utils.Filter{Cond: "subscription_id = ?", Values: []interface{}{subscriptionId}})
	}
	if quoteId := c.Query("quote_id"); quoteId != "" {
		filters = append(filters, utils.Filter{Cond: "quote_id = ?", Values: []interface{}{quoteId}})
	}
	invoices, err := models.GetInvoices(c.Request.Context(), filters...)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func UpdateInvoice(c *gin.Context) {
	var input models.NewInvoice
	if !bindJSON(c, &input) {
		return
	}
	invoice, err := models.UpdateInvoice(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func UpdateInvoiceStatus(c *gin.Context) {
	var input models.UpdateInvoiceStatusInput
	if !bindJSON(c, &input) {
		return
	}
	invoice, err := models.UpdateInvoiceStatus(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func DeleteInvoice(c *gin.Context) {
	if err := models.DeleteInvoice(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}
