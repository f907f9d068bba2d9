package models

// Customer is a debtor account holder
type Customer struct {
	ID               string    `json:"id"`
	AccountNumber    string    `json:"accountNumber"`
	CustomerName     string    `json:"customerName"`
	AccountType      string    `json:"accountType"`
	CustomerTier     string    `json:"customerTier"`
	HistoricalHealth string    `json:"historicalHealth"`
	InvoiceNumber    string    `json:"invoiceNumber"`
	DueDate          Timestamp `json:"dueDate"`
	AmountDue        float64   `json:"amountDue"`
	ServiceType      string    `json:"serviceType"`
	Region           string    `json:"region"`
	CustomerEmail    string    `json:"customerEmail"`
}

// CustomerList is one page of the customer directory
type CustomerList struct {
	Customers   []Customer `json:"customers"`
	Total       int        `json:"total"`
	Pages       int        `json:"pages"`
	CurrentPage int        `json:"current_page"`
}

// CustomerFilter holds the directory query parameters
type CustomerFilter struct {
	Page   int
	Limit  int
	Search string
}
