package catalog

// Column names shared by every layer.
const (
	ColCustomerID              = "customer_id"
	ColAge                     = "age"
	ColJob                     = "job"
	ColMaritalStatus           = "marital_status"
	ColEducation               = "education"
	ColBalance                 = "balance"
	ColLoan                    = "loan"
	ColContactType             = "contact_type"
	ColLastContactMonth        = "last_contact_month"
	ColDaysSinceLastContact    = "days_since_last_contact"
	ColPreviousCampaignOutcome = "previous_campaign_outcome"

	ColTransactionID     = "transaction_id"
	ColTransactionAmount = "transaction_amount"
	ColTransactionDate   = "transaction_date"
	ColTransactionType   = "transaction_type"
	ColMerchantCategory  = "merchant_category"
	ColTransactionStatus = "transaction_status"
)

// CustomerColumns is the column order of a customer record.
var CustomerColumns = []string{
	ColCustomerID, ColAge, ColJob, ColMaritalStatus, ColEducation, ColBalance,
	ColLoan, ColContactType, ColLastContactMonth, ColDaysSinceLastContact,
	ColPreviousCampaignOutcome,
}

// TransactionColumns is the column order of a transaction record.
var TransactionColumns = []string{
	ColTransactionID, ColCustomerID, ColTransactionAmount, ColTransactionDate,
	ColTransactionType, ColMerchantCategory, ColTransactionStatus,
}

// FactCustomerColumns are the customer attributes copied onto each fact row.
var FactCustomerColumns = CustomerColumns[1:]

// ViewColumns is the projection of the reporting view.
var ViewColumns = []string{
	ColCustomerID, ColAge, ColJob, ColBalance, ColTransactionID,
	ColTransactionAmount, ColTransactionDate, ColMerchantCategory,
	ColTransactionStatus,
}

// Transaction types referenced by reports.
const (
	TypePurchase = "purchase"
	TypeRefund   = "refund"
)
