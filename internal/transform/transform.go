// Package transform maps validated Fidelity responses into domain entities.
// All stringly-typed upstream values (currency amounts, history dates) are
// parsed here, at the boundary; nothing stringly-typed crosses into the
// domain model.
package transform

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/fidelity/internal/domain"
	"github.com/rumor-ml/commons.systems/fidelity/internal/fidate"
	"github.com/rumor-ml/commons.systems/fidelity/internal/schema"
)

// backendOK is the only backend status that counts as healthy, compared
// case-insensitively.
const backendOK = "ok"

// currencyStripper removes the currency symbol and thousands separators the
// webactivity endpoint embeds in amount strings.
var currencyStripper = strings.NewReplacer("$", "", ",", "")

// ToAccounts converts a validated accounts response into domain accounts in
// fetch order. A non-ok backend status fails the whole response before any
// account is produced.
func ToAccounts(resp *schema.AccountsResponse) ([]domain.Account, error) {
	ctx := resp.Data.GetContext

	status := *ctx.SysStatus.Backend.Account
	if !strings.EqualFold(status, backendOK) {
		return nil, domain.BackendError(status)
	}

	assets := *ctx.Person.Assets
	accounts := make([]domain.Account, 0, len(assets))
	for _, asset := range assets {
		accounts = append(accounts, domain.Account{
			Number: *asset.AcctNum,
			Name:   *asset.PreferenceDetail.Name,
		})
	}
	return accounts, nil
}

// ToTransactions converts a validated transactions response into domain
// transactions, preserving upstream order. No re-sorting, no de-duplication.
func ToTransactions(resp *schema.TransactionsResponse) ([]domain.Transaction, error) {
	historys := *resp.Data.GetTransactions.Historys
	transactions := make([]domain.Transaction, 0, len(historys))
	for i, entry := range historys {
		txn, err := ToTransaction(&entry)
		if err != nil {
			return nil, fmt.Errorf("history entry %d: %w", i, err)
		}
		transactions = append(transactions, *txn)
	}
	return transactions, nil
}

// ToTransaction converts a single history entry. Pending transactions
// commonly carry placeholder amount text, so an unparseable amount is
// recorded as absent when pending; on a settled transaction it is fatal. An
// unparseable date is fatal regardless of pending state.
func ToTransaction(entry *schema.HistoryEntry) (*domain.Transaction, error) {
	pending := *entry.IntradayInd

	amount, err := ParseAmount(*entry.Amount)
	if err != nil {
		if !pending {
			return nil, domain.FormatError(
				fmt.Sprintf("unexpected amount %q on settled transaction for account %s",
					*entry.Amount, *entry.AcctNum), err)
		}
		amount = nil
	}

	date, err := fidate.ParseHistoryDate(*entry.Date)
	if err != nil {
		return nil, err
	}

	return &domain.Transaction{
		AcctNum:     *entry.AcctNum,
		Date:        date,
		Description: *entry.Description,
		Amount:      amount,
		OrderNumber: entry.OrderNumber,
		Pending:     pending,
	}, nil
}

// ParseAmount parses a dollar amount string as the endpoint renders it
// ("-$1,234.56"), rounded to 2 decimal places.
func ParseAmount(s string) (*decimal.Decimal, error) {
	cleaned := currencyStripper.Replace(s)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("amount %q is not a number: %w", s, err)
	}
	rounded := d.Round(2)
	return &rounded, nil
}
