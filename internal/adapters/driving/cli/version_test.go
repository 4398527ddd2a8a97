package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_SkipsBootstrap(t *testing.T) {
	assert.Equal(t, "true", versionCmd.Annotations[skipBootstrap])
}

func TestVersionCmd_Output(t *testing.T) {
	for _, v := range []string{"dev", "1.4.0"} {
		t.Run(v, func(t *testing.T) {
			saved := version
			version = v
			defer func() { version = saved }()

			out, err := execute(t, "version")

			require.NoError(t, err)
			assert.Equal(t, "ragdesk version "+v+"\n", out)
		})
	}
}
