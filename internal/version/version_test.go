package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetCurrentVersion(t *testing.T) {
	require.Equal(t, DevVersion, GetCurrentVersion("dev"))
	require.Equal(t, Version, GetCurrentVersion("prod"))
}

func TestIsVersionGreaterThan(t *testing.T) {
	require.True(t, IsVersionGreaterThan("0.3.1", "0.3.0"))
	require.True(t, IsVersionGreaterThan("0.3", "0.2.9"))
	require.False(t, IsVersionGreaterThan("0.3.0", "0.3.0"))
	require.False(t, IsVersionGreaterThan("0.2.9", "0.3"))
}

func TestIsVersionGreaterOrEqualThan(t *testing.T) {
	require.True(t, IsVersionGreaterOrEqualThan("0.3.0", "0.3.0"))
	require.True(t, IsVersionGreaterOrEqualThan("0.3.1", "0.3"))
	require.False(t, IsVersionGreaterOrEqualThan("0.2.9", "0.3"))
}
