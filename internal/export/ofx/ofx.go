// Package ofx exports fetched transactions as an OFX statement so finance
// tools that import OFX/QFX can ingest them.
package ofx

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"

	"github.com/rumor-ml/commons.systems/fidelity/internal/domain"
	"github.com/rumor-ml/commons.systems/fidelity/internal/fidate"
	"github.com/rumor-ml/commons.systems/fidelity/internal/transform"
)

const (
	org = "Fidelity"
	fid = "7776"
)

var usd = mustCurrSymbol("USD")

func mustCurrSymbol(code string) ofxgo.CurrSymbol {
	cs, err := ofxgo.NewCurrSymbol(code)
	if err != nil {
		// Unreachable for ISO 4217 codes.
		panic(fmt.Sprintf("currency %s: %v", code, err))
	}
	return *cs
}

// WriteStatements writes one OFX bank statement per account to w. Pending
// transactions are skipped: OFX has no pending concept and their amounts may
// be absent. Statement and transaction order follows the input.
func WriteStatements(w io.Writer, accounts []domain.Account, transactions []domain.Transaction, generatedAt time.Time) error {
	byAccount := make(map[string][]domain.Transaction, len(accounts))
	for _, t := range transactions {
		if !t.Settled() {
			continue
		}
		byAccount[t.AcctNum] = append(byAccount[t.AcctNum], t)
	}

	resp := ofxgo.Response{
		Version: ofxgo.OfxVersion203,
		Signon: ofxgo.SignonResponse{
			Status:   okStatus(),
			DtServer: ofxgo.Date{Time: generatedAt},
			Language: ofxgo.String("ENG"),
			Org:      ofxgo.String(org),
			Fid:      ofxgo.String(fid),
		},
	}

	for _, account := range accounts {
		resp.Bank = append(resp.Bank, statement(account, byAccount[account.Number], generatedAt))
	}

	buf, err := resp.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal OFX response: %w", err)
	}
	if _, err := io.Copy(w, buf); err != nil {
		return fmt.Errorf("failed to write OFX output: %w", err)
	}
	return nil
}

// WriteFile writes the OFX statements to a file path.
func WriteFile(path string, accounts []domain.Account, transactions []domain.Transaction, generatedAt time.Time) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create OFX file %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close OFX file %s: %w", path, closeErr)
		}
	}()

	return WriteStatements(f, accounts, transactions, generatedAt)
}

func statement(account domain.Account, transactions []domain.Transaction, generatedAt time.Time) *ofxgo.StatementResponse {
	tranList := &ofxgo.TransactionList{
		DtStart: ofxgo.Date{Time: generatedAt},
		DtEnd:   ofxgo.Date{Time: generatedAt},
	}
	for _, t := range transactions {
		posted := t.Date.In(fidate.Zone())
		if posted.Before(tranList.DtStart.Time) {
			tranList.DtStart = ofxgo.Date{Time: posted}
		}

		trnType := ofxgo.TrnTypeCredit
		if t.Amount.IsNegative() {
			trnType = ofxgo.TrnTypeDebit
		}
		var amount ofxgo.Amount
		amount.Set(t.Amount.Rat())

		tranList.Transactions = append(tranList.Transactions, ofxgo.Transaction{
			TrnType:  trnType,
			DtPosted: ofxgo.Date{Time: posted},
			TrnAmt:   amount,
			FiTID:    ofxgo.String(transform.TransactionID(&t)),
			Name:     ofxgo.String(t.Description),
		})
	}

	trnUID, err := ofxgo.RandomUID()
	if err != nil {
		// Practically unreachable; RandomUID only fails when the system
		// entropy source does.
		fallback := ofxgo.UID(uuid.NewString())
		trnUID = &fallback
	}

	return &ofxgo.StatementResponse{
		TrnUID: *trnUID,
		Status: okStatus(),
		CurDef: usd,
		BankAcctFrom: ofxgo.BankAcct{
			BankID:   ofxgo.String(org),
			AcctID:   ofxgo.String(account.Number),
			AcctType: ofxgo.AcctTypeChecking,
		},
		BankTranList: tranList,
		DtAsOf:       ofxgo.Date{Time: generatedAt},
	}
}

func okStatus() ofxgo.Status {
	return ofxgo.Status{
		Code:     0,
		Severity: "INFO",
	}
}
