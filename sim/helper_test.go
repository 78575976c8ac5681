package sim_test

import (
	"testing"
	"time"

	"github.com/jsmidtbosch/veos-cosim-client/channel"
	"github.com/jsmidtbosch/veos-cosim-client/cosim"
	"github.com/stretchr/testify/require"
)

func newChannelPair(t *testing.T) (*channel.Channel, *channel.Channel) {
	name := cosim.GenerateString("Transfer名前")

	listener, err := channel.ListenRing(name)
	require.Nil(t, err)
	t.Cleanup(func() { listener.Close() })

	sender, err := channel.TryConnectRing(name, time.Second)
	require.Nil(t, err)
	require.NotNil(t, sender)
	t.Cleanup(func() { sender.Disconnect() })

	receiver, err := listener.TryAccept(time.Second)
	require.Nil(t, err)
	require.NotNil(t, receiver)
	t.Cleanup(func() { receiver.Disconnect() })

	return sender, receiver
}
