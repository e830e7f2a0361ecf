package redisstore

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func atoiPort(t *testing.T, port string) int {
	t.Helper()
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return p
}
