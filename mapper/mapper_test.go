package mapper_test

import (
	"os"
	"testing"

	"github.com/jsmidtbosch/veos-cosim-client/mapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Keep the well known port out of the way of a real port mapper.
	os.Setenv("DSVEOSCOSIM_PORTMAPPER_PORT", "41027")
	os.Exit(m.Run())
}

func TestPortMapper_SetGetUnsetRoundTrip(t *testing.T) {
	server, err := mapper.NewServer(false)
	require.Nil(t, err)
	defer server.Close()

	assert.Nil(t, mapper.SetPort("srv", 40000))

	port, err := mapper.GetPort("", "srv")
	assert.Nil(t, err)
	assert.Equal(t, uint16(40000), port)

	assert.Nil(t, mapper.UnsetPort("srv"))

	_, err = mapper.GetPort("", "srv")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, mapper.ErrNotFound)
	assert.Contains(t, err.Error(), "Could not find port for server 'srv'.")
}

func TestPortMapper_SetPortOverwrites(t *testing.T) {
	server, err := mapper.NewServer(false)
	require.Nil(t, err)
	defer server.Close()

	assert.Nil(t, mapper.SetPort("srv", 40000))
	assert.Nil(t, mapper.SetPort("srv", 40001))

	port, err := mapper.GetPort("", "srv")
	assert.Nil(t, err)
	assert.Equal(t, uint16(40001), port)

	assert.Nil(t, mapper.UnsetPort("srv"))
}

func TestPortMapper_UnsetAbsentNameSucceeds(t *testing.T) {
	server, err := mapper.NewServer(false)
	require.Nil(t, err)
	defer server.Close()

	assert.Nil(t, mapper.UnsetPort("no-such-server"))
}

func TestPortMapper_EachConnectionHandlesOneRequest(t *testing.T) {
	server, err := mapper.NewServer(false)
	require.Nil(t, err)
	defer server.Close()

	// Several sequential requests each ride their own connection.
	for i := 0; i < 5; i++ {
		assert.Nil(t, mapper.SetPort("srv", uint16(40000+i)))
	}

	port, err := mapper.GetPort("", "srv")
	assert.Nil(t, err)
	assert.Equal(t, uint16(40004), port)

	assert.Nil(t, mapper.UnsetPort("srv"))
}
