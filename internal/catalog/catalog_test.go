package catalog

import "testing"

func TestTableRefNames(t *testing.T) {
	if got := CustomerSilver.String(); got != "silver.customer_silver" {
		t.Errorf("String() = %q", got)
	}
	if got := FactTransactions.Ident(); got != `"gold"."fact_transactions"` {
		t.Errorf("Ident() = %q", got)
	}
	if got := TransactionsSilver.WithSuffix("__stage").String(); got != "silver.transactions_silver__stage" {
		t.Errorf("WithSuffix() = %q", got)
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := QuoteIdent(`we"ird`); got != `"we""ird"` {
		t.Errorf("QuoteIdent() = %q", got)
	}
}

func TestParseLayer(t *testing.T) {
	for _, name := range []string{"bronze", " Silver ", "GOLD", "medallion"} {
		if _, err := ParseLayer(name); err != nil {
			t.Errorf("ParseLayer(%q) failed: %v", name, err)
		}
	}
	if _, err := ParseLayer("platinum"); err == nil {
		t.Error("Expected error for unknown layer")
	}
}

func TestDatasetTables(t *testing.T) {
	if Customers.BronzeTable() != CustomerBronze || Customers.SilverTable() != CustomerSilver {
		t.Error("customer dataset maps to wrong tables")
	}
	if Transactions.BronzeTable() != TransactionsBronze || Transactions.SilverTable() != TransactionsSilver {
		t.Error("transaction dataset maps to wrong tables")
	}
}

func TestLayout(t *testing.T) {
	tests := []struct {
		name    string
		layout  Layout
		str     string
		wantErr bool
	}{
		{name: "none", layout: Layout{}, str: "none"},
		{name: "partition", layout: PartitionedBy("transaction_date"), str: "partition_by=transaction_date"},
		{name: "bucket", layout: BucketedBy("customer_id", 8), str: "bucket_by=customer_id buckets=8"},
		{name: "zero buckets", layout: BucketedBy("customer_id", 0), str: "bucket_by=customer_id buckets=0", wantErr: true},
		{name: "both", layout: Layout{PartitionBy: "a", BucketBy: "b", Buckets: 2}, str: "partition_by=a", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.layout.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
			err := tt.layout.Validate()
			if tt.wantErr != (err != nil) {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	if !(Layout{}).IsZero() || PartitionedBy("x").IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestFactCustomerColumnsSkipKey(t *testing.T) {
	if FactCustomerColumns[0] != ColAge {
		t.Errorf("Expected first fact customer column to be age, got %s", FactCustomerColumns[0])
	}
	if len(FactCustomerColumns) != len(CustomerColumns)-1 {
		t.Errorf("Expected %d fact customer columns, got %d", len(CustomerColumns)-1, len(FactCustomerColumns))
	}
}
