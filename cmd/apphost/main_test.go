package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/hostresolve/internal/apphost"
)

func TestBindingIsPlaceholder(t *testing.T) {
	t.Parallel()

	require.Equal(t, apphost.Marker(), binding)
	_, err := apphost.ParseBinding(binding)
	var unbound *apphost.UnboundError
	require.ErrorAs(t, err, &unbound)
}
