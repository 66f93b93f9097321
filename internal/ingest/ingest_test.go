package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
	"github.com/pgEdge/pgedge-medallion/internal/testutil"
)

func TestReadTypesAndNulls(t *testing.T) {
	input := "\uFEFFTransaction ID,Customer ID,Amount,Date,Flag\n" +
		"1,10,12.50,2023-01-01,true\n" +
		"2,,7,2023-01-02,\n"

	tbl, err := Read(context.Background(), strings.NewReader(input), Options{TrimSpace: true})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	wantCols := []catalog.Column{
		{Name: "transaction_id", Type: catalog.TypeInteger},
		{Name: "customer_id", Type: catalog.TypeInteger},
		{Name: "amount", Type: catalog.TypeReal},
		{Name: "date", Type: catalog.TypeDate},
		{Name: "flag", Type: catalog.TypeBoolean},
	}
	if diff := cmp.Diff(wantCols, tbl.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	wantRows := [][]any{
		{int64(1), int64(10), 12.5, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{int64(2), nil, 7.0, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), nil},
	}
	if diff := cmp.Diff(wantRows, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if tbl.Profile.NullKeys != 1 || tbl.Profile.Rows != 2 {
		t.Errorf("profile = %+v", tbl.Profile)
	}
}

func TestReadFieldCountMismatchFails(t *testing.T) {
	input := "customer_id,job\n1,admin\n2,chef,extra\n"
	_, err := Read(context.Background(), strings.NewReader(input), Options{})
	if err == nil {
		t.Fatal("expected error for a row with an extra field")
	}
	if !errors.Is(err, csv.ErrFieldCount) {
		t.Errorf("error = %v, want csv.ErrFieldCount", err)
	}
}

func TestReadErrors(t *testing.T) {
	if _, err := Read(context.Background(), strings.NewReader(""), Options{}); !errors.Is(err, ErrNoHeader) {
		t.Errorf("empty input error = %v", err)
	}
	if _, err := Read(context.Background(), strings.NewReader("id,job\n1,a\n"), Options{}); err == nil {
		t.Error("expected error for missing key column")
	}
	if _, err := ReadFile(context.Background(), "/nonexistent/customers.csv", Options{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadSampledCoercion(t *testing.T) {
	input := "customer_id,age\n1,30\n2,41\n3,unknown\n"
	tbl, err := Read(context.Background(), strings.NewReader(input), Options{SampleRows: 2})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tbl.Columns[1].Type != catalog.TypeInteger {
		t.Errorf("age type = %s, want integer", tbl.Columns[1].Type)
	}
	if tbl.Coerced != 1 {
		t.Errorf("Coerced = %d, want 1", tbl.Coerced)
	}
	if tbl.Rows[2][1] != nil {
		t.Errorf("unparseable value = %v, want NULL", tbl.Rows[2][1])
	}
}

func TestReadDelimiter(t *testing.T) {
	tbl, err := Read(context.Background(), strings.NewReader("customer_id;job\n1;admin.\n"), Options{Delimiter: ';'})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(tbl.Columns) != 2 || tbl.Rows[0][1] != "admin." {
		t.Errorf("unexpected table: %+v", tbl)
	}
}

// 100 customers: 92 distinct, 5 with a missing id, 3 exact repeats.
func customerCSV() string {
	var b strings.Builder
	b.WriteString("customer_id,age,job,balance,loan\n")
	row := func(id string, i int) {
		fmt.Fprintf(&b, "%s,%d,job%d,%d.5,no\n", id, 20+i%50, i%7, 1000*i)
	}
	for i := 1; i <= 92; i++ {
		row(fmt.Sprint(i), i)
	}
	for i := 0; i < 5; i++ {
		row("", 1)
	}
	for i := 1; i <= 3; i++ {
		row(fmt.Sprint(i), i)
	}
	return b.String()
}

func TestProfileExpectedClean(t *testing.T) {
	path := testutil.WriteFile(t, "customers.csv", customerCSV())

	tbl, err := ReadFile(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	want := Profile{Rows: 100, NullKeys: 5, Duplicates: 3}
	if tbl.Profile != want {
		t.Errorf("profile = %+v, want %+v", tbl.Profile, want)
	}
	if got := tbl.Profile.ExpectedClean(); got != 92 {
		t.Errorf("ExpectedClean = %d, want 92", got)
	}
}

func TestFingerprintDistinguishesNullFromEmpty(t *testing.T) {
	p := newProfiler(0)
	p.add([]any{int64(1), nil})
	p.add([]any{int64(1), ""})
	p.add([]any{int64(1), nil})
	if p.profile.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", p.profile.Duplicates)
	}
}

func TestFingerprintFloatEquality(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		dup  bool
	}{
		{name: "signed zero", a: 0, b: math.Copysign(0, -1), dup: true},
		{name: "nan", a: math.NaN(), b: math.NaN(), dup: true},
		{name: "distinct values", a: 0.5, b: -0.5, dup: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProfiler(0)
			p.add([]any{int64(1), tt.a})
			p.add([]any{int64(1), tt.b})
			if got := p.profile.Duplicates == 1; got != tt.dup {
				t.Errorf("duplicate = %v, want %v", got, tt.dup)
			}
		})
	}
}

func TestProfileSignedZeroBalance(t *testing.T) {
	input := "customer_id,balance\n1,0.0\n1,-0.0\n"
	tbl, err := Read(context.Background(), strings.NewReader(input), Options{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := tbl.Profile.ExpectedClean(); got != 1 {
		t.Errorf("ExpectedClean = %d, want 1", got)
	}
}
