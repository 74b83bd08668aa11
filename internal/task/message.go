package task

import "github.com/gpulayers/device-comms/internal/protocol"

// Message is the in-flight record for one comms-core operation: endpoint,
// kind, sequence id, outbound payload, inbound payload (TX_RX only), and
// the completion latch the caller blocks on. It is constructed by the
// comms facade per call, shared by reference with the transmitter and
// (for TX_RX) the receiver, and discarded once the caller observes
// completion.
type Message struct {
	Endpoint uint8
	Kind     protocol.Kind
	ID       uint64 // nonzero only for Kind == KindTXRX

	OutPayload []byte // consumed on send; may be released afterwards
	InPayload  []byte // populated only for KindTXRX, once a response arrives

	Completion *CompletionLatch
}

// New constructs a Message ready to be enqueued. TX_ASYNC messages are
// never waited on, but still carry a latch for structural uniformity — it
// is simply never notified or waited.
func New(endpoint uint8, kind protocol.Kind, id uint64, payload []byte) *Message {
	return &Message{
		Endpoint:   endpoint,
		Kind:       kind,
		ID:         id,
		OutPayload: payload,
		Completion: NewCompletionLatch(),
	}
}

// Wait blocks until the message has been fully processed (bytes sent, for
// TX; response received, for TX_RX).
func (m *Message) Wait() { m.Completion.Wait() }

// Notify marks the message complete and wakes the waiting caller, if any.
func (m *Message) Notify() { m.Completion.Notify() }
