// Package firestore syncs fetched transactions to Cloud Firestore. Documents
// are keyed by the deterministic transaction ID, so repeated syncs of
// overlapping windows upsert instead of duplicating, and each sync is
// recorded as a fetch-run document for auditing.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/rumor-ml/commons.systems/fidelity/internal/domain"
	"github.com/rumor-ml/commons.systems/fidelity/internal/transform"
)

const fetchRunsSuffix = "-fetch-runs"

// Client wraps a Firestore client with transaction-sync operations.
type Client struct {
	Firestore  *firestore.Client
	projectID  string
	collection string
}

// NewClient creates a Firestore client for the given project using
// Application Default Credentials. collection names the transaction
// collection; fetch runs live in a sibling collection.
func NewClient(ctx context.Context, projectID, collection string) (*Client, error) {
	conf := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return &Client{
		Firestore:  firestoreClient,
		projectID:  projectID,
		collection: collection,
	}, nil
}

// Close closes the Firestore client.
func (c *Client) Close() error {
	return c.Firestore.Close()
}

// Transaction is the Firestore document form of a fetched transaction.
// Amount is the fixed 2-decimal string form, empty when absent.
type Transaction struct {
	ID          string    `firestore:"id"`
	AcctNum     string    `firestore:"acctNum"`
	Date        string    `firestore:"date"`
	Description string    `firestore:"description"`
	Amount      string    `firestore:"amount,omitempty"`
	OrderNumber string    `firestore:"orderNumber,omitempty"`
	Pending     bool      `firestore:"pending"`
	FetchRunID  string    `firestore:"fetchRunId"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

// FetchRun records one sync: the window, the accounts, and the outcome.
type FetchRun struct {
	ID               string     `firestore:"id"`
	Start            string     `firestore:"start"`
	End              string     `firestore:"end"`
	AccountNumbers   []string   `firestore:"accountNumbers"`
	TransactionCount int        `firestore:"transactionCount"`
	CreatedAt        time.Time  `firestore:"createdAt"`
	CompletedAt      *time.Time `firestore:"completedAt,omitempty"`
}

// Sync upserts all transactions and records a fetch run around them. Returns
// the fetch run ID.
func (c *Client) Sync(ctx context.Context, acctNums []string, start, end civil.Date, transactions []domain.Transaction) (string, error) {
	run := &FetchRun{
		ID:               uuid.NewString(),
		Start:            start.String(),
		End:              end.String(),
		AccountNumbers:   acctNums,
		TransactionCount: len(transactions),
		CreatedAt:        time.Now(),
	}
	if _, err := c.runs().Doc(run.ID).Set(ctx, run); err != nil {
		return "", fmt.Errorf("failed to create fetch run: %w", err)
	}

	now := time.Now()
	for _, t := range transactions {
		doc := toDocument(&t, run.ID, now)
		if _, err := c.transactions().Doc(doc.ID).Set(ctx, doc); err != nil {
			return "", fmt.Errorf("failed to sync transaction %s: %w", doc.ID, err)
		}
	}

	completed := time.Now()
	run.CompletedAt = &completed
	if _, err := c.runs().Doc(run.ID).Set(ctx, run); err != nil {
		return "", fmt.Errorf("failed to complete fetch run %s: %w", run.ID, err)
	}
	return run.ID, nil
}

// GetTransactionsByAccount retrieves an account's synced transactions,
// newest first.
func (c *Client) GetTransactionsByAccount(ctx context.Context, acctNum string) ([]*Transaction, error) {
	iter := c.transactions().
		Where("acctNum", "==", acctNum).
		OrderBy("date", firestore.Desc).
		Documents(ctx)

	var transactions []*Transaction
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate transactions for account %s: %w", acctNum, err)
		}

		var txn Transaction
		if err := doc.DataTo(&txn); err != nil {
			return nil, fmt.Errorf("failed to parse transaction document: %w", err)
		}
		transactions = append(transactions, &txn)
	}

	return transactions, nil
}

// ListFetchRuns retrieves the most recent fetch runs, newest first.
func (c *Client) ListFetchRuns(ctx context.Context, limit int) ([]*FetchRun, error) {
	iter := c.runs().
		OrderBy("createdAt", firestore.Desc).
		Limit(limit).
		Documents(ctx)

	var runs []*FetchRun
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate fetch runs: %w", err)
		}

		var run FetchRun
		if err := doc.DataTo(&run); err != nil {
			return nil, fmt.Errorf("failed to parse fetch run document: %w", err)
		}
		runs = append(runs, &run)
	}

	return runs, nil
}

func (c *Client) transactions() *firestore.CollectionRef {
	return c.Firestore.Collection(c.collection)
}

func (c *Client) runs() *firestore.CollectionRef {
	return c.Firestore.Collection(c.collection + fetchRunsSuffix)
}

func toDocument(t *domain.Transaction, runID string, now time.Time) *Transaction {
	doc := &Transaction{
		ID:          transform.TransactionID(t),
		AcctNum:     t.AcctNum,
		Date:        t.Date.String(),
		Description: t.Description,
		Pending:     t.Pending,
		FetchRunID:  runID,
		UpdatedAt:   now,
	}
	if t.Amount != nil {
		doc.Amount = t.Amount.StringFixed(2)
	}
	if t.OrderNumber != nil {
		doc.OrderNumber = *t.OrderNumber
	}
	return doc
}
