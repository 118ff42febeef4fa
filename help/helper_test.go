package help

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultKubeconfig(t *testing.T) {
	t.Setenv("HOME", "/home/ops")
	t.Setenv("KUBECONFIG", "")
	assert.Equal(t, filepath.Join("/home/ops", ".kube", "config"), DefaultKubeconfig())

	t.Setenv("KUBECONFIG", "/etc/kube/admin"+string(filepath.ListSeparator)+"/etc/kube/other")
	assert.Equal(t, "/etc/kube/admin", DefaultKubeconfig())
}

func TestDefaultConfigFile(t *testing.T) {
	t.Setenv("HOME", "/home/ops")
	assert.Equal(t, filepath.Join("/home/ops", ".config", "openshift-mcp-server", "config.yaml"), DefaultConfigFile())
}
