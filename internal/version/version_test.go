package version

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestVersionStrings ensures Short and Full return non-empty consistent information.
func TestVersionStrings(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
	require.NotEmpty(t, Canonical(Short()))
}

// TestIsNewer compares release versions with and without the v prefix.
func TestIsNewer(t *testing.T) {
	t.Parallel()

	require.True(t, IsNewer("1.2.0", "1.1.9"))
	require.True(t, IsNewer("v2.0.0", "1.9.0"))
	require.True(t, IsNewer("0.1.0", "dev"))
	require.False(t, IsNewer("1.0.0", "1.0.0"))
	require.False(t, IsNewer("1.0.0", "v1.0.1"))
	require.False(t, IsNewer("garbage", "1.0.0"))
	require.Equal(t, "v1.2.0", Canonical("1.2"))
}

// TestVersionCommand prints the short form with --short.
func TestVersionCommand(t *testing.T) {
	t.Parallel()

	root := &cobra.Command{Use: "root"}
	AttachCobraVersionCommand(root)

	var output bytes.Buffer

	root.SetOut(&output)
	root.SetArgs([]string{"version", "--short"})

	require.NoError(t, root.Execute())
	require.Equal(t, Short()+"\n", output.String())
}
