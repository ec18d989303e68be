package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nexweave/vendordesk_backend/models/reports"
)

func GetRevenueSummary(c *gin.Context) {
	summary, err := reports.GetRevenueSummary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func GetRevenueForecast(c *gin.Context) {
	months := 12
	if v := c.Query("months"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 60 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "months must be between 1 and 60"})
			return
		}
		months = parsed
	}
	forecast, err := reports.GetRevenueForecast(c.Request.Context(), months)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, forecast)
}

func GetCohortAnalysis(c *gin.Context) {
	cohorts, err := reports.GetCohortAnalysis(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cohorts)
}

func ExportInvoiceRegister(c *gin.Context) {
	f, err := reports.WriteInvoiceRegisterExcel(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=invoices.xlsx")
	if err := f.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}

func ExportRevenueForecast(c *gin.Context) {
	months := 12
	if v := c.Query("months"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err == nil && parsed >= 1 && parsed <= 60 {
			months = parsed
		}
	}
	f, err := reports.WriteForecastExcel(c.Request.Context(), months)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=forecast.xlsx")
	if err := f.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}
