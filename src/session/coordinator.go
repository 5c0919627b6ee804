package session

import (
	"context"

	"deepchat/src/deepsearch"
	"deepchat/src/types"
)

// Coordinator owns both the session store and the deep-search store and
// exposes a single send/read surface, so the two streams are multiplexed in
// one place instead of by convention at every call site.
type Coordinator struct {
	session *Store
	deep    *deepsearch.Store
}

// NewCoordinator wires the two stores together.
func NewCoordinator(session *Store, deep *deepsearch.Store) *Coordinator {
	return &Coordinator{session: session, deep: deep}
}

// Session returns the underlying session store.
func (c *Coordinator) Session() *Store {
	return c.session
}

// DeepSearch returns the underlying deep-search store.
func (c *Coordinator) DeepSearch() *deepsearch.Store {
	return c.deep
}

// Send routes one outgoing message. Deep-search mode is consulted before the
// generation guard: a deep-search send is never blocked by an unrelated
// normal-chat generation in progress, and vice versa.
func (c *Coordinator) Send(ctx context.Context, content string) error {
	if c.deep.Active() {
		return c.deep.Send(ctx, content)
	}
	return c.session.Send(ctx, content)
}

// ActiveMessages returns the message sequence the UI should render: the
// deep-search stream while the mode is on, the active chat's otherwise.
func (c *Coordinator) ActiveMessages() []types.Message {
	if c.deep.Active() {
		return c.deep.Messages()
	}
	return c.session.Messages()
}

// Busy reports whether the stream currently rendered has a request in
// flight.
func (c *Coordinator) Busy() bool {
	if c.deep.Active() {
		return c.deep.Snapshot().IsLoading
	}
	return c.session.IsGenerating()
}
