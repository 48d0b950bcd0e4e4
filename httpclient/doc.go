// Package httpclient is the streaming transport used to open completion
// streams. It posts a JSON body, applies authentication and default headers,
// and returns the response body unread so the caller can consume it chunk by
// chunk.
//
// The configured Timeout bounds the time until response headers arrive.
// Once the body starts streaming no further deadline applies; cancel the
// request context to abandon a stalled stream.
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.openai.com/v1",
//	    Timeout: 2 * time.Second,
//	    Auth:    httpclient.BearerAuth(apiKey),
//	})
//
//	resp, err := client.DoStream(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/chat/completions",
//	    Body:   body,
//	})
//	defer resp.Close()
//
// Failures are returned as *Error, classified by ErrorCode.
package httpclient
