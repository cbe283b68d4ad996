// Package request composes the fetch options for the two Fidelity
// operations. The transactions body is rendered from an embedded mustache
// template and then re-parsed against the strict request schema, so template
// drift fails construction instead of producing a malformed network call.
package request

import (
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/cbroglie/mustache"

	"github.com/rumor-ml/commons.systems/fidelity/internal/domain"
	"github.com/rumor-ml/commons.systems/fidelity/internal/fidate"
	"github.com/rumor-ml/commons.systems/fidelity/internal/schema"
)

//go:embed templates/getAccountsOptions.json
var accountsOptionsJSON string

//go:embed templates/getTransactionsBody.json.mustache
var transactionsBodyTemplate string

//go:embed templates/getTransactionsOptions.json.mustache
var transactionsOptionsTemplate string

// Options is the JSON-serializable fetch options argument for one logical
// operation: method, headers, body and the rest of the fetch options object.
// Constructed fresh per call, never persisted.
type Options map[string]any

// AccountsOptions returns the static fetch options for the accounts
// operation.
func AccountsOptions() (Options, error) {
	var opts Options
	if err := json.Unmarshal([]byte(accountsOptionsJSON), &opts); err != nil {
		return nil, domain.FormatError("embedded accounts options template is not valid JSON", err)
	}
	return opts, nil
}

// TransactionsOptions returns the fetch options for retrieving transactions
// for accounts between start and end, inclusive, with both dates interpreted
// as midnight in the reference timezone.
func TransactionsOptions(accounts []domain.Account, start, end civil.Date) (Options, error) {
	body, err := transactionsBody(accounts, start, end)
	if err != nil {
		return nil, err
	}

	// The options template embeds the body as a JSON string literal, the
	// same double-encoding the endpoint expects.
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return nil, domain.FormatError("failed to quote transactions request body", err)
	}
	rendered, err := mustache.Render(transactionsOptionsTemplate, map[string]any{
		"body": string(quoted),
	})
	if err != nil {
		return nil, domain.FormatError("failed to render transactions options template", err)
	}

	var opts Options
	if err := json.Unmarshal([]byte(rendered), &opts); err != nil {
		return nil, domain.FormatError("rendered transactions options are not valid JSON", err)
	}
	return opts, nil
}

// transactionsBody renders the body template and round-trips the result
// through the strict request schema.
func transactionsBody(accounts []domain.Account, start, end civil.Date) ([]byte, error) {
	entries := make([]map[string]any, len(accounts))
	for i, a := range accounts {
		entries[i] = map[string]any{
			"number": a.Number,
			"name":   EncodeAccountName(a.Name),
			"last":   i == len(accounts)-1,
		}
	}
	context := map[string]any{
		"accounts": entries,
		"start":    strconv.FormatInt(fidate.EpochSeconds(start), 10),
		"end":      strconv.FormatInt(fidate.EpochSeconds(end), 10),
	}

	rendered, err := mustache.Render(transactionsBodyTemplate, context)
	if err != nil {
		return nil, domain.FormatError("failed to render transactions body template", err)
	}

	req, err := schema.DecodeTransactionsRequest([]byte(rendered))
	if err != nil {
		return nil, domain.FormatError("rendered transactions body does not satisfy the request schema", err)
	}
	return schema.EncodeTransactionsRequest(req)
}

// EncodeAccountName encodes an account name the way the transactions request
// carries it: standard base64 over the UTF-8 bytes of the plain name.
func EncodeAccountName(name string) string {
	return base64.StdEncoding.EncodeToString([]byte(name))
}

// DecodeAccountName reverses EncodeAccountName. Used for diagnostics only.
func DecodeAccountName(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode account name %q: %w", encoded, err)
	}
	return string(raw), nil
}
