// Package fidelity orchestrates the two Fidelity data operations over an
// authenticated browser session: resolving the account list and retrieving
// transaction history. The package owns no credentials and speaks no HTTP
// itself; an injected Evaluator runs fetch calls inside the session where the
// cookies already live.
package fidelity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"cloud.google.com/go/civil"
	"github.com/sirupsen/logrus"

	"github.com/rumor-ml/commons.systems/fidelity/internal/domain"
	"github.com/rumor-ml/commons.systems/fidelity/internal/request"
	"github.com/rumor-ml/commons.systems/fidelity/internal/schema"
	"github.com/rumor-ml/commons.systems/fidelity/internal/transform"
)

// Fixed endpoints. The paths are contract with the remote service.
const (
	accountsURL     = "https://digital.fidelity.com/ftgw/digital/portfolio/api/graphql?ref_at=portsum"
	transactionsURL = "https://digital.fidelity.com/ftgw/digital/webactivity/api/graphql?ref_at=activity"
)

// Evaluator executes a self-contained JavaScript expression inside the
// authenticated browser session and returns the awaited result decoded as
// JSON. Cancellation and timeouts are the Evaluator's responsibility.
type Evaluator interface {
	Evaluate(ctx context.Context, script string) (json.RawMessage, error)
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, script string) (json.RawMessage, error)

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(ctx context.Context, script string) (json.RawMessage, error) {
	return f(ctx, script)
}

// fetchResult is the envelope the injected fetch script resolves to: json on
// a 200, text otherwise.
type fetchResult struct {
	Status int             `json:"status"`
	JSON   json.RawMessage `json:"json"`
	Text   string          `json:"text"`
}

// Client retrieves accounts and transactions through an Evaluator. The
// account list is resolved lazily on first need and cached for the Client's
// lifetime; construct a new Client to force a refresh.
//
// A Client is intended for one logical caller at a time. Concurrent calls
// against a cold cache may each issue a redundant accounts fetch; the fetch
// is idempotent, so the cache converges either way.
type Client struct {
	evaluator Evaluator
	log       *logrus.Logger

	populated bool
	accounts  []domain.Account
	byNumber  map[string]domain.Account
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a Client over the given Evaluator.
func New(evaluator Evaluator, opts ...Option) *Client {
	log := logrus.New()
	log.SetOutput(io.Discard)

	c := &Client{
		evaluator: evaluator,
		log:       log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAccounts returns all accounts in fetch order, populating the cache on
// first call.
func (c *Client) GetAccounts(ctx context.Context) ([]domain.Account, error) {
	if err := c.ensureAccounts(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.Account, len(c.accounts))
	copy(out, c.accounts)
	return out, nil
}

// GetTransactions retrieves transactions for the named accounts between
// start and end, inclusive. Unknown account numbers fail the whole call with
// a not-found error naming every missing number; on success, transactions
// come back in the order the upstream response listed them.
func (c *Client) GetTransactions(ctx context.Context, acctNums []string, start, end civil.Date) ([]domain.Transaction, error) {
	if err := c.ensureAccounts(ctx); err != nil {
		return nil, err
	}

	resolved := make([]domain.Account, 0, len(acctNums))
	var missing []string
	for _, num := range acctNums {
		account, ok := c.byNumber[num]
		if !ok {
			missing = append(missing, num)
			continue
		}
		resolved = append(resolved, account)
	}
	if len(missing) > 0 {
		return nil, domain.NotFoundError(missing)
	}

	opts, err := request.TransactionsOptions(resolved, start, end)
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"accounts": len(resolved),
		"start":    start.String(),
		"end":      end.String(),
	}).Debug("fetching transactions")

	raw, err := c.fetch(ctx, transactionsURL, opts)
	if err != nil {
		return nil, err
	}
	resp, err := schema.DecodeTransactionsResponse(raw)
	if err != nil {
		return nil, err
	}
	transactions, err := transform.ToTransactions(resp)
	if err != nil {
		return nil, err
	}

	c.log.WithField("count", len(transactions)).Debug("fetched transactions")
	return transactions, nil
}

// ensureAccounts populates the account cache on first use. The cache is only
// written on full success, so a failed population leaves the Client cold and
// the next call retries.
func (c *Client) ensureAccounts(ctx context.Context) error {
	if c.populated {
		return nil
	}

	opts, err := request.AccountsOptions()
	if err != nil {
		return err
	}

	c.log.Debug("fetching accounts")
	raw, err := c.fetch(ctx, accountsURL, opts)
	if err != nil {
		return err
	}
	resp, err := schema.DecodeAccountsResponse(raw)
	if err != nil {
		return err
	}
	accounts, err := transform.ToAccounts(resp)
	if err != nil {
		return err
	}

	byNumber := make(map[string]domain.Account, len(accounts))
	for _, a := range accounts {
		byNumber[a.Number] = a
	}

	c.accounts = accounts
	c.byNumber = byNumber
	c.populated = true
	c.log.WithField("count", len(accounts)).Debug("account cache populated")
	return nil
}

// fetch runs one fetch inside the session and returns the response JSON.
// Any status other than 200 is fatal, whether or not the body was JSON.
func (c *Client) fetch(ctx context.Context, url string, opts request.Options) (json.RawMessage, error) {
	script, err := fetchScript(url, opts)
	if err != nil {
		return nil, err
	}

	raw, err := c.evaluator.Evaluate(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("evaluate fetch against %s: %w", url, err)
	}

	var result fetchResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, domain.FormatError("evaluator returned a malformed fetch result", err)
	}
	if result.Status != 200 {
		return nil, domain.TransportError(result.Status, result.Text)
	}
	if len(result.JSON) == 0 {
		return nil, domain.FormatError("evaluator fetch result has status 200 but no json payload", nil)
	}
	return result.JSON, nil
}

// fetchScript builds the self-contained expression the Evaluator runs: an
// async IIFE that performs the fetch and resolves to a fetchResult envelope.
func fetchScript(url string, opts request.Options) (string, error) {
	encoded, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("encode fetch options: %w", err)
	}
	return fmt.Sprintf(`(async () => {
  const r = await fetch(%q, %s);
  if (!r.ok) {
    return { status: r.status, text: await r.text() };
  }
  return { status: r.status, json: await r.json() };
})()`, url, encoded), nil
}
