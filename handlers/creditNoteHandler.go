package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nexweave/vendordesk_backend/models"
	"github.com/nexweave/vendordesk_backend/utils"
)

func CreateCreditNote(c *gin.Context) {
	var input models.NewCreditNote
	if !bindJSON(c, &input) {
		return
	}
	creditNote, err := models.CreateCreditNote(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, creditNote)
}

func GetCreditNote(c *gin.Context) {
	creditNote, err := models.GetCreditNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, creditNote)
}

func ListCreditNotes(c *gin.Context) {
	var filters []utils.Filter
	if invoiceId := c.Query("invoice_id"); invoiceId != "" {
		filters = append(filters, utils.Filter{Cond: "invoice_id = ?", Values: []interface{}{invoiceId}})
	}
	creditNotes, err := models.GetCreditNotes(c.Request.Context(), filters...)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, creditNotes)
}

func UpdateCreditNote(c *gin.Context) {
	var input models.NewCreditNote
	if !bindJSON(c, &input) {
		return
	}
	creditNote, err := models.UpdateCreditNote(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, creditNote)
}

func DeleteCreditNote(c *gin.Context) {
	if err := models.DeleteCreditNote(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}
