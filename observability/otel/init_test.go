package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = abc ,broken,=x, team=casino ")
	require.Equal(t, map[string]string{"api-key": "abc", "team": "casino"}, got)
	require.Empty(t, ParseHeaders(""))
}

func TestInitRequiresServiceName(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	require.Error(t, err)
}

func TestInitWithoutSignals(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "casinod", Environment: "test", Network: "wager-local"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
