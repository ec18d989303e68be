package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/nexweave/vendordesk_backend/config"
	"github.com/nexweave/vendordesk_backend/models"
	"github.com/nexweave/vendordesk_backend/utils"
	"github.com/shopspring/decimal"
)

// Full lifecycle chain against real MySQL + Redis: quotation with taxed
// lines, PM review, a PO raised from it (which bumps the quotation), PM PO
// approval, and an invoice carrying the quotation's totals forward.
func TestQuotationToPurchaseOrderToInvoiceChain(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "vendordesk_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	vendorCtx := context.Background()
	vendorCtx = utils.SetVendorIdInContext(vendorCtx, "vendor-chain-1")
	vendorCtx = utils.SetRoleInContext(vendorCtx, string(models.RoleVendor))
	vendorCtx = utils.SetUserNameInContext(vendorCtx, "Chain Vendor")

	pmCtx := context.Background()
	pmCtx = utils.SetVendorIdInContext(pmCtx, "pm-user-1")
	pmCtx = utils.SetRoleInContext(pmCtx, string(models.RoleProjectManager))
	pmCtx = utils.SetUserNameInContext(pmCtx, "Chain PM")

	// 1) Vendor drafts a quotation: 1000 subtotal, 9% + 9% GST = 1180 total.
	quotation, err := models.CreateQuotation(vendorCtx, &models.NewQuotation{
		ClientName: "Acme Ltd",
		LineItems: []models.NewTaxedLine{
			{
				Description: "Implementation services",
				Quantity:    decimal.NewFromInt(10),
				UnitAmount:  decimal.NewFromInt(100),
				CgstRate:    decimal.NewFromInt(9),
				SgstRate:    decimal.NewFromInt(9),
			},
		},
	})
	if err != nil {
		t.Fatalf("CreateQuotation: %v", err)
	}
	if quotation.Status != models.QuotationStatusDraft {
		t.Fatalf("new quotation status = %s, want draft", quotation.Status)
	}
	if !quotation.Subtotal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("quotation subtotal = %s, want 1000", quotation.Subtotal)
	}
	if !quotation.Total.Equal(decimal.NewFromInt(1180)) {
		t.Fatalf("quotation total = %s, want 1180", quotation.Total)
	}

	// 2) PM must not see the draft.
	if _, err := models.UpdateQuotationStatus(pmCtx, quotation.DocumentId, &models.UpdateQuotationStatusInput{
		VendorId: "vendor-chain-1",
		Status:   models.QuotationStatusApproved,
	}); err == nil {
		t.Fatal("PM review of a draft quotation must fail")
	}

	// 3) Vendor raises a PO straight off the draft quotation without
	// restating lines.
	po, err := models.CreatePurchaseOrder(vendorCtx, &models.NewPurchaseOrder{
		QuotationId: quotation.DocumentId,
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
	if po.Status != models.PurchaseOrderStatusSentToPm {
		t.Fatalf("po status = %s, want sent_to_pm", po.Status)
	}
	if po.StatusType != models.PurchaseOrderStatusTypePending {
		t.Fatalf("po status_type = %s, want pending", po.StatusType)
	}
	if !po.Total.Equal(quotation.Total) {
		t.Fatalf("po total = %s, want quotation total %s", po.Total, quotation.Total)
	}

	// The quotation bump is best-effort after the PO commit; give it a read.
	bumped, err := models.GetQuotation(vendorCtx, quotation.DocumentId)
	if err != nil {
		t.Fatalf("re-read quotation: %v", err)
	}
	if bumped.Status != models.QuotationStatusPoSentToPmForReview {
		t.Fatalf("quotation status after PO = %s, want po_sent_to_pm_for_review", bumped.Status)
	}

	// 4) Vendor cannot approve their own PO; the PM can.
	if _, err := models.ReviewPurchaseOrder(vendorCtx, po.DocumentId, &models.ReviewPurchaseOrderInput{
		VendorId:   "vendor-chain-1",
		StatusType: models.PurchaseOrderStatusTypeApproved,
	}); err == nil {
		t.Fatal("vendor must not be able to review a PO")
	}
	po, err = models.ReviewPurchaseOrder(pmCtx, po.DocumentId, &models.ReviewPurchaseOrderInput{
		VendorId:   "vendor-chain-1",
		StatusType: models.PurchaseOrderStatusTypeApproved,
		Feedback:   "Looks good",
	})
	if err != nil {
		t.Fatalf("ReviewPurchaseOrder: %v", err)
	}
	if po.StatusType != models.PurchaseOrderStatusTypeApproved {
		t.Fatalf("po status_type = %s, want approved", po.StatusType)
	}

	// Cross-owner PM reads carry the line items, same as the vendor's own.
	pmQuotation, err := models.GetQuotation(pmCtx, quotation.DocumentId)
	if err != nil {
		t.Fatalf("PM GetQuotation: %v", err)
	}
	if len(pmQuotation.LineItems) == 0 {
		t.Fatal("PM quotation read must include line items")
	}
	pmPo, err := models.GetPurchaseOrder(pmCtx, po.DocumentId)
	if err != nil {
		t.Fatalf("PM GetPurchaseOrder: %v", err)
	}
	if len(pmPo.LineItems) == 0 {
		t.Fatal("PM purchase order read must include line items")
	}

	// 5) Invoice keyed to the quotation inherits counterparty and totals.
	invoice, err := models.CreateInvoice(vendorCtx, &models.NewInvoice{
		QuoteId:    quotation.DocumentId,
		ClientName: "Acme Ltd",
		LineItems: []models.NewTaxedLine{
			{
				Description: "Implementation services",
				Quantity:    decimal.NewFromInt(10),
				UnitAmount:  decimal.NewFromInt(100),
				CgstRate:    decimal.NewFromInt(9),
				SgstRate:    decimal.NewFromInt(9),
			},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if invoice.Status != models.InvoiceStatusDraft {
		t.Fatalf("invoice status = %s, want draft", invoice.Status)
	}
	if !invoice.Total.Equal(decimal.NewFromInt(1180)) {
		t.Fatalf("invoice total = %s, want 1180", invoice.Total)
	}
	expectedTotal := invoice.Subtotal.Add(invoice.CgstAmount).Add(invoice.SgstAmount).Add(invoice.IgstAmount)
	if !invoice.Total.Equal(expectedTotal) {
		t.Fatalf("invoice total %s != subtotal+taxes %s", invoice.Total, expectedTotal)
	}

	// 6) A second vendor cannot see or build on the first vendor's chain.
	otherCtx := context.Background()
	otherCtx = utils.SetVendorIdInContext(otherCtx, "vendor-chain-2")
	otherCtx = utils.SetRoleInContext(otherCtx, string(models.RoleVendor))
	if _, err := models.CreatePurchaseOrder(otherCtx, &models.NewPurchaseOrder{
		QuotationId: quotation.DocumentId,
	}); err == nil {
		t.Fatal("cross-vendor PO creation must fail as not-found")
	}
	if _, err := models.GetInvoice(otherCtx, invoice.DocumentId); err == nil {
		t.Fatal("cross-vendor invoice read must fail")
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("vendordesk-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("vendordesk-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=vendordesk_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
