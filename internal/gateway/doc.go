// Package gateway assembles the API Gateway: the route table, the
// forwarding proxy, the health endpoints and the middleware chain, all
// served by a single HTTP listener.
//
// Fixed endpoints (/, /health, /ready, /live) are registered on a gin
// engine. Every other request falls through to the dispatcher, which
// forwards it to the upstream owning the longest matching path prefix
// or answers 404.
//
// # Usage
//
//	gw, err := gateway.New(cfg,
//	    gateway.WithLogger(logger),
//	    gateway.WithVersion(version),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := gw.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer gw.Stop(ctx)
package gateway
