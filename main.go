package main

// storefront-admin runs the admin client either as an HTTP surface or as
// one-shot commands. Both keep the session token and the cart in the
// configured storage, so state carries over between runs.
//
// GET  /auth/login                  - login view (guest only)
// POST /auth/login                  - log in
// POST /auth/logout                 - log out
// GET  /dashboard                   - profile and cart summary
// GET  /dashboard/categories/index  - list categories
// GET  /dashboard/product/index     - list products
// GET  /dashboard/cart              - cart snapshot
// GET  /metrics                     - Prometheus metrics

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	lc := &lifecycle{}
	err := newRootCmd(lc).ExecuteContext(ctx)
	stop()
	if cerr := lc.Close(); cerr != nil {
		fmt.Fprintln(os.Stderr, cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
