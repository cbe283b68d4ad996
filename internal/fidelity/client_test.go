package fidelity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/commons.systems/fidelity/internal/domain"
)

// scriptedEvaluator routes each evaluated script to a canned result based on
// which endpoint the script fetches, counting invocations per endpoint.
type scriptedEvaluator struct {
	t *testing.T

	accountsResult     json.RawMessage
	transactionsResult json.RawMessage
	err                error

	accountsCalls     int
	transactionsCalls int
	lastScript        string
}

func (e *scriptedEvaluator) Evaluate(_ context.Context, script string) (json.RawMessage, error) {
	e.lastScript = script
	if e.err != nil {
		return nil, e.err
	}
	switch {
	case strings.Contains(script, "portfolio/api/graphql"):
		e.accountsCalls++
		return e.accountsResult, nil
	case strings.Contains(script, "webactivity/api/graphql"):
		e.transactionsCalls++
		return e.transactionsResult, nil
	}
	e.t.Fatalf("script fetches no known endpoint:\n%s", script)
	return nil, nil
}

func loadFixture(t *testing.T, name string) json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

// okEnvelope wraps a response payload the way the fetch script resolves it on
// a 200.
func okEnvelope(t *testing.T, payload json.RawMessage) json.RawMessage {
	t.Helper()
	envelope, err := json.Marshal(map[string]any{
		"status": 200,
		"json":   json.RawMessage(payload),
	})
	require.NoError(t, err)
	return envelope
}

func newTestClient(t *testing.T) (*Client, *scriptedEvaluator) {
	eval := &scriptedEvaluator{
		t:                  t,
		accountsResult:     okEnvelope(t, loadFixture(t, "accounts_response.json")),
		transactionsResult: okEnvelope(t, loadFixture(t, "transactions_response.json")),
	}
	return New(eval), eval
}

func TestGetAccounts(t *testing.T) {
	client, eval := newTestClient(t)

	accounts, err := client.GetAccounts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.Account{
		{Number: "1234", Name: "name1"},
		{Number: "6789", Name: "name2"},
	}, accounts, "accounts must come back in fetch order")
	assert.Equal(t, 1, eval.accountsCalls)

	assert.Contains(t, eval.lastScript, "await fetch(")
	assert.Contains(t, eval.lastScript, "digital.fidelity.com/ftgw/digital/portfolio/api/graphql?ref_at=portsum")
}

func TestGetAccountsReturnsCopy(t *testing.T) {
	client, _ := newTestClient(t)

	first, err := client.GetAccounts(context.Background())
	require.NoError(t, err)
	first[0].Number = "mutated"

	second, err := client.GetAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1234", second[0].Number, "callers must not be able to mutate the cache")
}

func TestGetTransactions(t *testing.T) {
	client, eval := newTestClient(t)

	start := civil.Date{Year: 2025, Month: 11, Day: 28}
	end := civil.Date{Year: 2025, Month: 12, Day: 2}
	txns, err := client.GetTransactions(context.Background(), []string{"1234", "6789"}, start, end)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	settled := txns[0]
	assert.Equal(t, "1234", settled.AcctNum)
	assert.Equal(t, civil.Date{Year: 2025, Month: 11, Day: 28}, settled.Date)
	require.NotNil(t, settled.Amount)
	assert.True(t, settled.Amount.Equal(decimal.RequireFromString("-1234.56")))
	require.NotNil(t, settled.OrderNumber)
	assert.Equal(t, "W123456789", *settled.OrderNumber)
	assert.False(t, settled.Pending)

	pending := txns[1]
	assert.Equal(t, "6789", pending.AcctNum)
	assert.Nil(t, pending.Amount, "unparseable pending amount must be absent")
	assert.Nil(t, pending.OrderNumber)
	assert.True(t, pending.Pending)

	assert.Equal(t, 1, eval.accountsCalls, "cold cache triggers exactly one accounts fetch")
	assert.Equal(t, 1, eval.transactionsCalls)
	assert.Contains(t, eval.lastScript, "digital.fidelity.com/ftgw/digital/webactivity/api/graphql?ref_at=activity")
	assert.Contains(t, eval.lastScript, "bmFtZTE=", "script body must carry the encoded account names")
}

func TestCacheHitAvoidsRefetch(t *testing.T) {
	client, eval := newTestClient(t)
	ctx := context.Background()
	start := civil.Date{Year: 2025, Month: 9, Day: 30}
	end := civil.Date{Year: 2025, Month: 10, Day: 1}

	_, err := client.GetTransactions(ctx, []string{"1234"}, start, end)
	require.NoError(t, err)
	_, err = client.GetTransactions(ctx, []string{"6789"}, start, end)
	require.NoError(t, err)
	_, err = client.GetAccounts(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, eval.accountsCalls, "the account cache must be populated at most once per client")
	assert.Equal(t, 2, eval.transactionsCalls)
}

func TestMissingAccountsBatched(t *testing.T) {
	client, eval := newTestClient(t)

	_, err := client.GetTransactions(context.Background(), []string{"1234", "zzz", "yyy"},
		civil.Date{Year: 2025, Month: 1, Day: 1}, civil.Date{Year: 2025, Month: 1, Day: 31})
	require.Error(t, err)

	var derr *domain.Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, domain.KindNotFound, derr.Kind)
	assert.Equal(t, []string{"zzz", "yyy"}, derr.Missing, "all missing numbers must be reported together, in request order")

	assert.Equal(t, 0, eval.transactionsCalls, "no partial fetch on unresolved accounts")
}

func TestTransportError(t *testing.T) {
	client, eval := newTestClient(t)
	eval.accountsResult = []byte(`{"status": 503, "text": "upstream maintenance"}`)

	_, err := client.GetAccounts(context.Background())
	require.Error(t, err)

	var derr *domain.Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, domain.KindTransport, derr.Kind)
	assert.Equal(t, 503, derr.Status)
	assert.Equal(t, "upstream maintenance", derr.Body)
}

func TestBackendErrorLeavesCacheCold(t *testing.T) {
	client, eval := newTestClient(t)
	eval.accountsResult = okEnvelope(t, []byte(`{
		"data": {
			"getContext": {
				"sysStatus": {"backend": {"account": "degraded"}},
				"person": {"assets": []}
			}
		}
	}`))

	ctx := context.Background()
	_, err := client.GetAccounts(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &domain.Error{Kind: domain.KindBackend}))

	// A failed population must not mark the cache warm; the next call
	// retries and can succeed.
	eval.accountsResult = okEnvelope(t, loadFixture(t, "accounts_response.json"))
	accounts, err := client.GetAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
	assert.Equal(t, 2, eval.accountsCalls)
}

func TestSchemaErrorSurfaces(t *testing.T) {
	client, eval := newTestClient(t)
	eval.transactionsResult = okEnvelope(t, []byte(`{"data": {"getTransactions": {}}}`))

	_, err := client.GetTransactions(context.Background(), []string{"1234"},
		civil.Date{Year: 2025, Month: 1, Day: 1}, civil.Date{Year: 2025, Month: 1, Day: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, &domain.Error{Kind: domain.KindSchema}), "got %v", err)
}

func TestEvaluatorErrorPropagates(t *testing.T) {
	eval := &scriptedEvaluator{t: t, err: fmt.Errorf("session closed")}
	client := New(eval)

	_, err := client.GetAccounts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session closed")
}

func TestMalformedEvaluatorResult(t *testing.T) {
	client, eval := newTestClient(t)
	eval.accountsResult = []byte(`"not an envelope`)

	_, err := client.GetAccounts(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, &domain.Error{Kind: domain.KindFormat}))
}
