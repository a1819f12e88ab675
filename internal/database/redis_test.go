package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := ConnectRedis("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())

	_, err = ConnectRedis("")
	require.Error(t, err)

	_, err = ConnectRedis("not-a-url")
	require.ErrorContains(t, err, "parse redis url")
}

func TestConnectEmptyURLs(t *testing.T) {
	_, err := ConnectPostgres("")
	require.Error(t, err)

	_, err = ConnectNATS("", "test")
	require.Error(t, err)
}
