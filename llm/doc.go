// Package llm streams chat-completion responses from an OpenAI-compatible
// API.
//
// A Client opens the upstream stream with retries (see resilience.Backoff)
// and normalizes every raw transport chunk into one chunk.Record:
//
//	c, err := llm.NewClient(os.Getenv("OPENAI_API_KEY"))
//	if err != nil { ... }
//
//	stream, err := c.ResponseStream(ctx, []llm.Message{llm.User("Hello")})
//	if err != nil { ... }
//	defer stream.Close()
//	for {
//	    rec, err := stream.Next()
//	    if err == io.EOF { break }
//	    ...
//	}
//
// StreamSingleResponse drains a stream into a single string.
package llm
