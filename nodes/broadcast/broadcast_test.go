package broadcast

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mponcet/gossip-glomers/internal/runtime"
	errspkg "github.com/mponcet/gossip-glomers/internal/runtime/errors"
	"github.com/mponcet/gossip-glomers/internal/runtime/handlers"
	loggingpkg "github.com/mponcet/gossip-glomers/internal/runtime/logging"
	"github.com/mponcet/gossip-glomers/internal/runtime/protocol"
)

func TestHandlerStoresUniqueMessagesInOrder(t *testing.T) {
	h := New()
	ctx := handlers.MessageContext{NodeID: "n1"}

	assert.Equal(t, ReadOk{Messages: []int{}}, h.Reply(ctx, Read{}))

	for _, v := range []int{3, 1, 3, 2} {
		assert.Equal(t, BroadcastOk{}, h.Reply(ctx, Broadcast{Message: v}))
	}
	assert.Equal(t, ReadOk{Messages: []int{3, 1, 2}}, h.Reply(ctx, Read{}))

	got := h.Messages()
	got[0] = 99
	assert.Equal(t, []int{3, 1, 2}, h.Messages())
}

func TestHandlerTopology(t *testing.T) {
	h := New()
	ctx := handlers.MessageContext{NodeID: "n2", Logger: loggingpkg.NopLogger()}

	resp := h.Reply(ctx, Topology{Topology: map[string][]string{
		"n1": {"n2"},
		"n2": {"n1", "n3"},
	}})
	assert.Equal(t, TopologyOk{}, resp)
	assert.Equal(t, []string{"n1", "n3"}, h.Neighbors())

	h.Reply(handlers.MessageContext{NodeID: "n9"}, Topology{Topology: map[string][]string{}})
	assert.Empty(t, h.Neighbors())
}

func TestVariantsRegistered(t *testing.T) {
	assert.Equal(t, []string{"broadcast", "read", "topology"}, protocol.Variants[Request]())
	assert.Equal(t, []string{"broadcast_ok", "read_ok", "topology_ok"}, protocol.Variants[Response]())
}

func TestDecodeRequests(t *testing.T) {
	tests := []struct {
		line string
		want Request
	}{
		{`{"src":"c1","dest":"n1","body":{"msg_id":1,"type":"broadcast","message":1000}}`, Broadcast{Message: 1000}},
		{`{"src":"c1","dest":"n1","body":{"msg_id":2,"type":"read"}}`, Read{}},
		{`{"src":"c1","dest":"n1","body":{"msg_id":3,"type":"topology","topology":{"n1":["n2"]}}}`, Topology{Topology: map[string][]string{"n1": {"n2"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.want.Type(), func(t *testing.T) {
			msg, err := protocol.Decode[Request]([]byte(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.Body.Payload)
		})
	}

	_, err := protocol.Decode[Request]([]byte(`{"src":"c1","dest":"n1","body":{"msg_id":1,"type":"broadcast"}}`))
	assert.ErrorIs(t, err, errspkg.ErrMissingField)
}

func TestBroadcastNode(t *testing.T) {
	input := strings.Join([]string{
		`{"src":"c1","dest":"n1","body":{"msg_id":1,"type":"init","node_id":"n1","node_ids":["n1"]}}`,
		`{"src":"c1","dest":"n1","body":{"msg_id":2,"type":"topology","topology":{"n1":[]}}}`,
		`{"src":"c1","dest":"n1","body":{"msg_id":3,"type":"broadcast","message":7}}`,
		`{"src":"c2","dest":"n1","body":{"msg_id":1,"type":"broadcast","message":8}}`,
		`{"src":"c1","dest":"n1","body":{"msg_id":4,"type":"read"}}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	rt := runtime.WithHandler(runtime.NewBuilder(
		runtime.WithInput(strings.NewReader(input)),
		runtime.WithOutput(&out),
		runtime.WithLogger(loggingpkg.NopLogger()),
	), handlers.Handler[Request, Response](New())).Build()
	require.NoError(t, rt.Run())

	assert.Equal(t, strings.Join([]string{
		`{"src":"n1","dest":"c1","body":{"msg_id":0,"in_reply_to":1,"type":"init_ok"}}`,
		`{"src":"n1","dest":"c1","body":{"msg_id":1,"in_reply_to":2,"type":"topology_ok"}}`,
		`{"src":"n1","dest":"c1","body":{"msg_id":2,"in_reply_to":3,"type":"broadcast_ok"}}`,
		`{"src":"n1","dest":"c2","body":{"msg_id":3,"in_reply_to":1,"type":"broadcast_ok"}}`,
		`{"src":"n1","dest":"c1","body":{"msg_id":4,"in_reply_to":4,"type":"read_ok","messages":[7,8]}}`,
	}, "\n")+"\n", out.String())
}
