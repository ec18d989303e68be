package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nexweave/vendordesk_backend/models"
	"github.com/nexweave/vendordesk_backend/utils"
)

type bulkSubscriptionInput struct {
	SubscriptionIds []string `json:"subscription_ids" binding:"required"`
}

func CreateSubscription(c *gin.Context) {
	var input models.NewSubscription
	if !bindJSON(c, &input) {
		return
	}
	subscription, err := models.CreateSubscription(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, subscription)
}

func GetSubscription(c *gin.Context) {
	subscription, err := models.GetSubscription(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subscription)
}

func ListSubscriptions(c *gin.Context) {
	var filters []utils.Filter
	if status := c.Query("status"); status != "" {
		filters = append(filters, utils.Filter{Cond: "status = ?", Values: []interface{}{status}})
	}
	if cycle := c.Query("billing_cycle"); cycle != "" {
		filters = append(filters, utils.Filter{Cond: "billing_cycle = ?", Values: []interface{}{cycle}})
	}
	subscriptions, err := models.GetSubscriptions(c.Request.Context(), filters...)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subscriptions)
}

func UpdateSubscription(c *gin.Context) {
	var input models.NewSubscription
	if !bindJSON(c, &input) {
		return
	}
	subscription, err := models.UpdateSubscription(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subscription)
}

func PauseSubscription(c *gin.Context) {
	subscription, err := models.PauseSubscription(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subscription)
}

func ResumeSubscription(c *gin.Context) {
	subscription, err := models.ResumeSubscription(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subscription)
}

func CancelSubscription(c *gin.Context) {
	subscription, err := models.CancelSubscription(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subscription)
}

// BulkPauseSubscriptions responds 200 with per-item outcomes; the batch
// itself never fails.
func BulkPauseSubscriptions(c *gin.Context) {
	var input bulkSubscriptionInput
	if !bindJSON(c, &input) {
		return
	}
	results := models.BulkPauseSubscriptions(c.Request.Context(), input.SubscriptionIds)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func BulkResumeSubscriptions(c *gin.Context) {
	var input bulkSubscriptionInput
	if !bindJSON(c, &input) {
		return
	}
	results := models.BulkResumeSubscriptions(c.Request.Context(), input.SubscriptionIds)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func GetRenewalHistory(c *gin.Context) {
	renewals, err := models.GetRenewalHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, renewals)
}

func GenerateSubscriptionInvoice(c *gin.Context) {
	invoice, err := models.GenerateInvoiceOnDemand(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func DeleteSubscription(c *gin.Context) {
	if err := models.DeleteSubscription(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}
