package netaddr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve_Loopback(t *testing.T) {
	infos, err := Resolve("tcp4", "127.0.0.1:8080")
	require.NoError(t, err)
	require.NotEmpty(t, infos)
	require.Equal(t, 8080, infos[0].Port)
	require.NotNil(t, infos[0].Sockaddr)
}

func TestResolve_WildcardPort(t *testing.T) {
	infos, err := Resolve("tcp4", ":0")
	require.NoError(t, err)
	require.NotEmpty(t, infos)
	require.Equal(t, 0, infos[0].Port)
}
