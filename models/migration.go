package models

import (
	"log"

	"github.com/nexweave/vendordesk_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Quotation{}, &QuotationLineItem{},
		&PurchaseOrder{}, &PurchaseOrderLineItem{},
		&Invoice{}, &InvoiceLineItem{},
		&CreditNote{}, &CreditNoteLineItem{},
		&Subscription{}, &SubscriptionItem{}, &SubscriptionRenewal{},
		&WorkspaceProject{},
		&NotificationRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
