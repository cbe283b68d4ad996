// Package schema defines the structural models for the two Fidelity response
// shapes this system depends on and for the outgoing transactions request.
//
// Response models enforce required fields but ignore anything outside the
// subset they name. The request model is strict both ways: unknown fields are
// forbidden and every named field is required, so a drifted template is
// caught before it reaches the network.
package schema

import "encoding/json"

// AccountsResponse is the validated shape of the portfolio-summary response.
type AccountsResponse struct {
	Data *AccountsData `json:"data" validate:"required"`
}

// AccountsData wraps the getContext payload.
type AccountsData struct {
	GetContext *AccountsContext `json:"getContext" validate:"required"`
}

// AccountsContext carries backend status and the person's assets.
type AccountsContext struct {
	SysStatus *SysStatus `json:"sysStatus" validate:"required"`
	Person    *Person    `json:"person" validate:"required"`
}

// SysStatus wraps the per-backend status block.
type SysStatus struct {
	Backend *BackendStatus `json:"backend" validate:"required"`
}

// BackendStatus reports the account backend's health. Anything other than
// "ok" (case-insensitive) is a backend-reported failure, distinct from a
// shape failure.
type BackendStatus struct {
	Account *string `json:"account" validate:"required"`
}

// Person holds the account list.
type Person struct {
	Assets *[]Asset `json:"assets" validate:"required"`
}

// Asset is one account entry in the accounts response.
type Asset struct {
	AcctNum          *string           `json:"acctNum" validate:"required"`
	AcctType         *string           `json:"acctType" validate:"required"`
	PreferenceDetail *PreferenceDetail `json:"preferenceDetail" validate:"required"`
}

// PreferenceDetail carries the owner-assigned account name.
type PreferenceDetail struct {
	Name *string `json:"name" validate:"required"`
}

// TransactionsResponse is the validated shape of the webactivity response.
type TransactionsResponse struct {
	Data *TransactionsData `json:"data" validate:"required"`
}

// TransactionsData wraps the getTransactions payload.
type TransactionsData struct {
	GetTransactions *TransactionsPayload `json:"getTransactions" validate:"required"`
}

// TransactionsPayload holds the history entries in upstream order.
type TransactionsPayload struct {
	Historys *[]HistoryEntry `json:"historys" validate:"required"`
}

// HistoryEntry is a single transaction in the transactions response. Amount
// and date arrive as strings; parsing them is the transformer's job, not the
// validator's.
type HistoryEntry struct {
	AcctNum     *string `json:"acctNum" validate:"required"`
	Amount      *string `json:"amount" validate:"required"`
	Date        *string `json:"date" validate:"required"`
	Description *string `json:"description" validate:"required"`
	IntradayInd *bool   `json:"intradayInd" validate:"required"`
	// OrderNumber is absent for pending transactions.
	OrderNumber *string `json:"orderNumber"`
}

// TransactionsRequest is the strict model a rendered transactions request
// body must satisfy before it is sent.
type TransactionsRequest struct {
	OperationName *string                  `json:"operationName" validate:"required"`
	Variables     *TransactionsRequestVars `json:"variables" validate:"required"`
	Query         *string                  `json:"query" validate:"required"`
}

// TransactionsRequestVars are the GraphQL variables of the request body.
type TransactionsRequestVars struct {
	IsNewOrderApi        *bool                 `json:"isNewOrderApi" validate:"required"`
	IsSupportCrypto      *bool                 `json:"isSupportCrypto" validate:"required"`
	HideDCOrders         *bool                 `json:"hideDCOrders" validate:"required"`
	AcctIdList           *string               `json:"acctIdList" validate:"required"`
	AcctDetailList       *[]AcctDetail         `json:"acctDetailList" validate:"required"`
	SearchCriteriaDetail *SearchCriteriaDetail `json:"searchCriteriaDetail" validate:"required"`
}

// AcctDetail is one account entry in the request body. Name carries the
// base64-encoded account name.
type AcctDetail struct {
	AcctNum  *string `json:"acctNum" validate:"required"`
	AcctType *string `json:"acctType" validate:"required"`
	Name     *string `json:"name" validate:"required"`
}

// SearchCriteriaDetail is the date-range and sort block of the request body.
// TxnCat must be present and JSON null; json.RawMessage keeps the distinction
// between absent and null that a typed field would lose.
type SearchCriteriaDetail struct {
	TimePeriod    *int            `json:"timePeriod" validate:"required"`
	TxnCat        json.RawMessage `json:"txnCat"`
	ViewType      *string         `json:"viewType" validate:"required"`
	HistSortDir   *string         `json:"histSortDir" validate:"required"`
	AcctHistSort  *string         `json:"acctHistSort" validate:"required"`
	HasBasketName *bool           `json:"hasBasketName" validate:"required"`
	TxnFromDate   *string         `json:"txnFromDate" validate:"required"`
	TxnToDate     *string         `json:"txnToDate" validate:"required"`
}
