// Package domain holds the entities produced by the Fidelity fetch pipeline
// and the error taxonomy shared by every stage of it.
package domain

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Account is a Fidelity account as reported by the portfolio endpoint.
// Immutable once fetched.
type Account struct {
	// Number is the Fidelity account number, unique and stable.
	Number string `json:"number"`
	// Name is the label the account owner assigned to the account.
	Name string `json:"name"`
}

// NewAccount creates a validated account.
func NewAccount(number, name string) (*Account, error) {
	if number == "" {
		return nil, fmt.Errorf("account number cannot be empty")
	}
	return &Account{Number: number, Name: name}, nil
}

// Transaction is a single Fidelity transaction. Two fetches may legitimately
// return structurally-equal transactions for the same underlying record; the
// type carries no identity beyond its fields.
type Transaction struct {
	// AcctNum is the Fidelity account number the transaction belongs to.
	AcctNum string `json:"acct_num"`
	// Date is the transaction date, interpreted as midnight America/New_York.
	Date civil.Date `json:"date"`
	// Description is the transaction description as reported upstream.
	Description string `json:"description"`
	// Amount is the dollar amount rounded to 2 places. Nil only when the
	// transaction is pending and the upstream amount was not parseable.
	Amount *decimal.Decimal `json:"amount,omitempty"`
	// OrderNumber identifies the order within the account. Nil only when
	// pending.
	OrderNumber *string `json:"order_number,omitempty"`
	// Pending reports whether the transaction has not settled yet.
	Pending bool `json:"pending"`
}

// Settled reports whether the transaction carries a final amount.
func (t *Transaction) Settled() bool {
	return !t.Pending && t.Amount != nil
}
