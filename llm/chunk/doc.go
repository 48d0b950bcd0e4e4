// Package chunk turns raw SSE transport chunks from a chat-completion
// endpoint into normalized records.
//
// Every input chunk yields exactly one Record: the concatenated delta
// content of the chunk's data lines plus a Finished flag that is set when a
// line carried finish_reason "stop". On the wire a record is its JSON
// encoding followed by Separator; Decoder splits such a byte stream back
// into records.
//
// Malformed lines are logged and skipped. They never abort a chunk or the
// stream.
package chunk
