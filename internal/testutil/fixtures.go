package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Dataset headers as the raw CSV files carry them.
const (
	CustomerHeader    = "customer_id,age,job,marital_status,education,balance,loan,contact_type,last_contact_month,days_since_last_contact,previous_campaign_outcome"
	TransactionHeader = "transaction_id,customer_id,transaction_amount,transaction_date,transaction_type,merchant_category,transaction_status"
)

// WriteDatasets writes customer and transaction CSVs with the standard
// headers into one temp directory and returns their paths.
func WriteDatasets(t *testing.T, customers, transactions []string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	write := func(name, header string, rows []string) string {
		path := filepath.Join(dir, name)
		content := header + "\n" + strings.Join(rows, "\n") + "\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
		return path
	}
	return write("customer_dataset.csv", CustomerHeader, customers),
		write("transactions_dataset.csv", TransactionHeader, transactions)
}
