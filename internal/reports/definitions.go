package reports

import (
	"strconv"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
	"github.com/pgEdge/pgedge-medallion/internal/sqlq"
)

// Thresholds used by the report queries.
const (
	HighBalance = 15000

	// SpenderThreshold separates high from low spenders. A monthly total
	// equal to the threshold is a low spender.
	SpenderThreshold = 1000

	TopWeeklyCustomers = 10
)

// Spender segment labels.
const (
	HighSpender = "High Spender"
	LowSpender  = "Low Spender"
)

// Column names used by several reports.
const (
	cust   = catalog.ColCustomerID
	txID   = catalog.ColTransactionID
	amount = catalog.ColTransactionAmount
	txDate = catalog.ColTransactionDate
	txType = catalog.ColTransactionType
	cat    = catalog.ColMerchantCategory
	job    = catalog.ColJob
)

var (
	isoYear = sqlq.Part("ISOYEAR", txDate)
	isoWeek = sqlq.Part("WEEK", txDate)
	year    = sqlq.Part("YEAR", txDate)
	month   = sqlq.Part("MONTH", txDate)
)

func init() {
	for _, def := range definitions {
		Register(def)
	}
}

var definitions = []Definition{
	{
		Name:        "high_balance_loans",
		Layer:       catalog.Bronze,
		Description: "Customers with a balance above 15000 and an active loan",
		Query: func() *sqlq.Query {
			return sqlq.Select().
				From(catalog.CustomerBronze.Ident()).
				Where(sqlq.Gt(catalog.ColBalance), HighBalance).
				Where(sqlq.Eq(catalog.ColLoan), "yes").
				OrderBy(cust)
		},
	},
	{
		Name:        "travel_purchases",
		Layer:       catalog.Bronze,
		Description: "Purchase transactions in the travel category",
		Query: func() *sqlq.Query {
			return sqlq.Select().
				From(catalog.TransactionsBronze.Ident()).
				Where(sqlq.Eq(txType), catalog.TypePurchase).
				Where(sqlq.Eq(cat), "travel").
				OrderBy(txID)
		},
	},
	{
		Name:        "top_transaction_job",
		Layer:       catalog.Bronze,
		Description: "Job of the customer with the highest single transaction",
		Query: func() *sqlq.Query {
			// Transactions without a matching customer never win.
			return sqlq.Select(
				sqlq.Col("t", txID),
				sqlq.Col("t", cust),
				sqlq.Col("t", amount),
				sqlq.Col("c", job),
			).
				From(catalog.TransactionsBronze.Ident(), "t").
				Join(catalog.CustomerBronze.Ident(), "c", sqlq.Col("t", cust)+" = "+sqlq.Col("c", cust)).
				Where(sqlq.IsNotNull(sqlq.Col("t", amount))).
				OrderBy(sqlq.Desc(sqlq.Col("t", amount)), sqlq.Col("t", txID), sqlq.Col("c", job)).
				Limit(1)
		},
	},
	{
		Name:        "cumulative_amount_by_category",
		Layer:       catalog.Silver,
		Description: "Running transaction total per merchant category by date",
		Query: func() *sqlq.Query {
			running := sqlq.Over(sqlq.Sum(amount), sqlq.Window{
				PartitionBy: []string{cat},
				OrderBy:     []string{txDate},
			})
			return sqlq.Select(
				cat, txDate, txID, amount,
				sqlq.As(sqlq.Double(running), "cumulative_amount"),
			).
				From(catalog.TransactionsSilver.Ident()).
				OrderBy(cat, txDate, txID)
		},
	},
	{
		Name:        "status_category_counts",
		Layer:       catalog.Silver,
		Description: "Transaction counts by status and merchant category",
		Query: func() *sqlq.Query {
			return sqlq.Select(
				catalog.ColTransactionStatus, cat,
				sqlq.As(sqlq.CountAll, "transaction_count"),
			).
				From(catalog.TransactionsSilver.Ident()).
				GroupBy(catalog.ColTransactionStatus, cat).
				OrderBy(catalog.ColTransactionStatus, cat)
		},
	},
	{
		Name:        "top_weekly_customers",
		Layer:       catalog.Silver,
		Description: "Customers with the most transactions in a single ISO week",
		Query: func() *sqlq.Query {
			weekly := sqlq.Select(
				cust,
				sqlq.As(isoYear, "iso_year"),
				sqlq.As(isoWeek, "iso_week"),
				sqlq.As(sqlq.CountAll, "transaction_count"),
			).
				From(catalog.TransactionsSilver.Ident()).
				GroupBy(cust, isoYear, isoWeek)
			return sqlq.Select(
				cust,
				sqlq.As(sqlq.Max("transaction_count"), "peak_weekly_transactions"),
			).
				With("weekly", weekly).
				From("weekly").
				GroupBy(cust).
				OrderBy(sqlq.Desc("peak_weekly_transactions"), cust).
				Limit(TopWeeklyCustomers)
		},
	},
	{
		Name:        "monthly_contribution",
		Layer:       catalog.Silver,
		Description: "Each customer's share of a month's transactions",
		Query: func() *sqlq.Query {
			monthly := sqlq.Select(
				cust,
				sqlq.As(year, "txn_year"),
				sqlq.As(month, "txn_month"),
				sqlq.As(sqlq.CountAll, "transaction_count"),
			).
				From(catalog.TransactionsSilver.Ident()).
				GroupBy(cust, year, month)
			total := sqlq.Over(sqlq.Sum("transaction_count"), sqlq.Window{
				PartitionBy: []string{"txn_year", "txn_month"},
			})
			return sqlq.Select(
				cust, "txn_year", "txn_month", "transaction_count",
				sqlq.As(sqlq.Double("transaction_count")+" * 100 / "+sqlq.Double(total), "contribution_pct"),
			).
				With("monthly", monthly).
				From("monthly").
				OrderBy("txn_year", "txn_month", cust)
		},
	},
	{
		Name:        "spender_segments",
		Layer:       catalog.Silver,
		Description: "Monthly high/low spender segment per customer",
		Query: func() *sqlq.Query {
			total := sqlq.Sum(amount)
			segment := sqlq.CaseWhen(
				total+" > "+strconv.Itoa(SpenderThreshold),
				sqlq.Quote(HighSpender),
				sqlq.Quote(LowSpender),
			)
			return sqlq.Select(
				cust,
				sqlq.As(year, "txn_year"),
				sqlq.As(month, "txn_month"),
				sqlq.As(sqlq.Double(total), "total_amount"),
				sqlq.As(segment, "spender_segment"),
			).
				From(catalog.TransactionsSilver.Ident()).
				GroupBy(cust, year, month).
				OrderBy("txn_year", "txn_month", cust)
		},
	},
	{
		Name:        "job_amount_rank",
		Layer:       catalog.Silver,
		Description: "Jobs ranked by total transaction amount",
		Query: func() *sqlq.Query {
			total := sqlq.Sum(sqlq.Col("t", amount))
			rank := sqlq.Over(sqlq.Rank, sqlq.Window{
				OrderBy: []string{sqlq.NullsLast(sqlq.Desc(total))},
			})
			return sqlq.Select(
				sqlq.Col("c", job),
				sqlq.As(sqlq.Double(total), "total_amount"),
				sqlq.As(rank, "job_rank"),
			).
				From(catalog.TransactionsSilver.Ident(), "t").
				Join(catalog.CustomerSilver.Ident(), "c", sqlq.Col("t", cust)+" = "+sqlq.Col("c", cust)).
				GroupBy(sqlq.Col("c", job)).
				OrderBy("job_rank", sqlq.Col("c", job))
		},
	},
	{
		Name:        "job_balance_summary",
		Layer:       catalog.Gold,
		Description: "Total balance and transaction count per job",
		Query: func() *sqlq.Query {
			return sqlq.Select(
				job,
				sqlq.As(sqlq.Double(sqlq.Sum(catalog.ColBalance)), "total_balance"),
				sqlq.As(sqlq.CountAll, "transaction_count"),
			).
				From(catalog.CustomerTransactionsView.Ident()).
				GroupBy(job).
				OrderBy(job)
		},
	},
	{
		Name:        "category_job_totals",
		Layer:       catalog.Gold,
		Description: "Transaction totals by merchant category and job",
		Query:       CategoryJobTotals,
	},
	{
		Name:        "avg_purchase_per_customer",
		Layer:       catalog.Gold,
		Description: "Average purchase amount per customer",
		Query: func() *sqlq.Query {
			return sqlq.Select(
				cust,
				sqlq.As(sqlq.Double(sqlq.Avg(amount)), "avg_purchase_amount"),
				sqlq.As(sqlq.CountAll, "purchase_count"),
			).
				From(catalog.FactTransactions.Ident()).
				Where(sqlq.Eq(txType), catalog.TypePurchase).
				GroupBy(cust).
				OrderBy(cust)
		},
	},
	{
		Name:        "top_weekly_net_spender",
		Layer:       catalog.Gold,
		Description: "Customer-week with the highest purchases minus refunds",
		Query: func() *sqlq.Query {
			net := "CASE WHEN " + txType + " = " + sqlq.Quote(catalog.TypePurchase) + " THEN " + amount +
				" WHEN " + txType + " = " + sqlq.Quote(catalog.TypeRefund) + " THEN -" + amount +
				" ELSE 0 END"
			return sqlq.Select(
				cust,
				sqlq.As(isoYear, "iso_year"),
				sqlq.As(isoWeek, "iso_week"),
				sqlq.As(sqlq.Double(sqlq.Sum(net)), "net_spending"),
			).
				From(catalog.FactTransactions.Ident()).
				GroupBy(cust, isoYear, isoWeek).
				OrderBy(sqlq.NullsLast(sqlq.Desc("net_spending")), cust, "iso_year", "iso_week").
				Limit(1)
		},
	},
}

// CategoryJobTotals sums transaction amounts by merchant category and job.
// It feeds the chart.
func CategoryJobTotals() *sqlq.Query {
	return sqlq.Select(
		cat, job,
		sqlq.As(sqlq.Double(sqlq.Sum(amount)), "total_amount"),
	).
		From(catalog.CustomerTransactionsView.Ident()).
		GroupBy(cat, job).
		OrderBy(cat, job)
}
