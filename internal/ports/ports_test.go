package ports

import (
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		port    int
		wantErr bool
	}{
		{port: 1024, wantErr: false},
		{port: 8080, wantErr: false},
		{port: 65535, wantErr: false},
		{port: 1023, wantErr: true},
		{port: 0, wantErr: true},
		{port: -1, wantErr: true},
		{port: 65536, wantErr: true},
		{port: 80, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("port_%d", tc.port), func(t *testing.T) {
			err := Validate(tc.port)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPort)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsAvailable(t *testing.T) {
	// Grab a random free port by binding, then check availability while
	// the listener is held and after it closes.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port

	assert.False(t, IsAvailable(port), "port should be busy while listener is open")

	require.NoError(t, ln.Close())
	assert.True(t, IsAvailable(port), "port should be free after listener closes")
}

func TestFindAvailableWith_PreferredFree(t *testing.T) {
	port, err := FindAvailableWith(8080, func(int) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, 8080, port)
}

func TestFindAvailableWith_ScansEphemeralRange(t *testing.T) {
	// Preferred is busy; the first free ephemeral port wins.
	free := EphemeralStart + 7
	port, err := FindAvailableWith(8080, func(p int) bool { return p == free })
	require.NoError(t, err)
	assert.Equal(t, free, port)
	assert.GreaterOrEqual(t, port, EphemeralStart)
	assert.LessOrEqual(t, port, EphemeralEnd)
}

func TestFindAvailableWith_Exhausted(t *testing.T) {
	_, err := FindAvailableWith(0, func(int) bool { return false })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoPortAvailable)
}

func TestFindAvailable_RealBind(t *testing.T) {
	port, err := FindAvailable(0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, port, EphemeralStart)
	assert.LessOrEqual(t, port, EphemeralEnd)
}
