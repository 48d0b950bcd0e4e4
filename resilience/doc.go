// Package resilience provides retry with jittered exponential backoff and a
// bulkhead that caps concurrent streams.
//
// Backoff guards a single operation, typically the request that opens a
// response stream:
//
//	stream, err := resilience.Backoff(ctx, resilience.DefaultBackoffConfig(),
//	    func(ctx context.Context) (*httpclient.StreamResponse, error) {
//	        return client.DoStream(ctx, req)
//	    })
//
// Each Backoff call owns its retry counter; nothing is shared between
// invocations. A Bulkhead, in contrast, is shared by every caller it guards.
package resilience
