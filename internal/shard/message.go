package shard

import "github.com/launix-de/lumadb/internal/ir"

// MsgKind tags which variant a ShardMessage holds.
type MsgKind uint8

const (
	MsgPut MsgKind = iota
	MsgGet
	MsgDelete
	MsgQuery
)

// GetReply/QueryReply are the per-message reply channels. A message
// carrying one of these MUST be answered exactly once;
// dropping it without sending is a protocol violation on the shard side,
// enforced in worker.go by deferring a close of the reply channel, so a
// handler that returns or panics without sending still releases the
// waiting caller, which sees the channel closed.
type GetReply chan GetResult
type QueryReply chan QueryResult

type GetResult struct {
	Value ir.Value
	Found bool
	Err   error
}

type QueryResult struct {
	Batch *ir.Batch
	Err   error
}

// ShardMessage is the tagged union the bus carries
type ShardMessage struct {
	Kind  MsgKind
	Key   ir.Key
	Value ir.Value
	Plan  ir.QueryPlan

	GetReply   GetReply
	QueryReply QueryReply
}

func NewPut(key ir.Key, value ir.Value) ShardMessage {
	return ShardMessage{Kind: MsgPut, Key: key, Value: value}
}
func NewDelete(key ir.Key) ShardMessage {
	return ShardMessage{Kind: MsgDelete, Key: key}
}
func NewGet(key ir.Key, reply GetReply) ShardMessage {
	return ShardMessage{Kind: MsgGet, Key: key, GetReply: reply}
}
func NewQuery(plan ir.QueryPlan, reply QueryReply) ShardMessage {
	return ShardMessage{Kind: MsgQuery, Plan: plan, QueryReply: reply}
}
