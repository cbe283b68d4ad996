// Package evaluator provides the browser-backed Evaluator: a visible Chrome
// session the user logs into by hand, against which fetch scripts run with
// the session's cookies.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// LoginURL is where the browser starts; the user completes authentication
// there before any data operation runs.
const LoginURL = "https://digital.fidelity.com/prgw/digital/login/full-page"

// Browser is a Chrome session that satisfies the client's Evaluator
// contract. Close releases the browser when done.
type Browser struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Start launches a headful Chrome window and navigates to the login page.
// Headful is deliberate: the user authenticates interactively, including any
// second factor, and the session cookies stay inside the browser.
func Start(ctx context.Context) (*Browser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	cancel := func() {
		browserCancel()
		allocCancel()
	}

	if err := chromedp.Run(browserCtx, chromedp.Navigate(LoginURL)); err != nil {
		cancel()
		return nil, fmt.Errorf("open login page: %w", err)
	}
	return &Browser{ctx: browserCtx, cancel: cancel}, nil
}

// Evaluate runs script in the page, awaiting its promise, and returns the
// resolved value as JSON.
func (b *Browser) Evaluate(ctx context.Context, script string) (json.RawMessage, error) {
	runCtx := b.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(b.ctx, deadline)
		defer cancel()
	}

	var result json.RawMessage
	err := chromedp.Run(runCtx, chromedp.Evaluate(script, &result,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		return nil, fmt.Errorf("evaluate script in page: %w", err)
	}
	return result, nil
}

// Close shuts the browser down.
func (b *Browser) Close() {
	b.cancel()
}
