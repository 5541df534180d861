// Package glomers is a small runtime for Maelstrom nodes, the distributed
// systems exercises known as Gossip Glomers. A node reads newline-delimited
// JSON messages on stdin and writes one reply per message on stdout; glomers
// owns that loop, the init handshake and the envelope bookkeeping so a node
// only implements Handler.
//
// A minimal echo node:
//
//	type Echo struct{ Echo string `json:"echo"` }
//	func (Echo) Type() string { return "echo" }
//
//	type EchoOk struct{ Echo string `json:"echo"` }
//	func (EchoOk) Type() string { return "echo_ok" }
//
//	h := glomers.HandlerFunc[Echo, EchoOk](func(_ glomers.MessageContext, in Echo) EchoOk {
//		return EchoOk{Echo: in.Echo}
//	})
//	rt := glomers.WithHandler(glomers.NewBuilder(), h).Build()
//	if err := rt.Run(); err != nil {
//		os.Exit(1)
//	}
//
// # Messages
//
// Payloads are plain structs with a Type method returning the body's "type"
// discriminator. Their fields sit next to msg_id and in_reply_to in the body.
// Fields are required unless they are pointers or tagged omitempty. A node that
// accepts several request types declares an interface and registers the
// variants with RegisterVariants.
//
// # Replies
//
// The init reply carries msg_id 0. Every later reply carries the next value of
// a per-runtime counter starting at 1, in_reply_to set to the request's msg_id,
// and src/dest swapped. Any line that cannot be decoded stops the runtime with
// a *DecodeError; a failed read or write stops it with a *TransportError.
//
// # Configuration
//
// LoadConfig reads GLOMERS_* variables, optionally from a .env file. Logs go
// to stderr because stdout carries protocol traffic. Metrics, tracing and a
// JSON-lines recording of all traffic can be switched on from the config.
package glomers
