// Package wcf defines the backend capability the gateway is built around.
//
// A WeChatFerry (WCF) session is one logged-in WeChat account driven by an
// injected automation helper. It is stateful and not safe for concurrent
// use, so the gateway only ever touches it through a Guard:
//
//	guard := wcf.NewGuard(backend, wcf.WithLogger(log))
//	ok, err := wcf.Call(ctx, guard, wcf.OpIsLogin, func(ctx context.Context, c wcf.Client) (bool, error) {
//	    return c.IsLogin(ctx)
//	})
//
// The Guard holds its lock for exactly one backend call. Multi-step flows
// such as attachment retrieval make several Calls and sleep between them
// without the lock.
//
// Two Client implementations exist: remote (a WCF bridge reached over
// MQTT) and simulator (local fixtures for development and tests).
package wcf
