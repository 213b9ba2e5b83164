package provider

// Customer is the optional payer block attached to a transaction.
type Customer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Document string `json:"document"`
}

// Transaction is a sale record as returned by the provider. Amounts are in
// minor currency units (centavos).
type Transaction struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	Amount        int64     `json:"amount"`
	Customer      *Customer `json:"customer,omitempty"`
	PaymentMethod string    `json:"paymentMethod,omitempty"`
	Installments  int       `json:"installments,omitempty"`
}

// Withdrawal is a payout record as returned by the provider.
type Withdrawal struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

type transactionListResponse struct {
	Data []Transaction `json:"data"`
}

type withdrawalListResponse struct {
	Data []Withdrawal `json:"data"`
}
