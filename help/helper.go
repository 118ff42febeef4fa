package help

import (
	"os"
	"os/user"
	"path/filepath"
)

const appName = "openshift-mcp-server"

func HomeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	if u, err := user.Current(); err == nil {
		return u.HomeDir
	}
	// Windows fallback
	if h := os.Getenv("USERPROFILE"); h != "" {
		return h
	}
	return "." // last resort: current dir
}

// DefaultKubeconfig honours $KUBECONFIG (first entry) before ~/.kube/config.
func DefaultKubeconfig() string {
	if env := os.Getenv("KUBECONFIG"); env != "" {
		return filepath.SplitList(env)[0]
	}
	return filepath.Join(HomeDir(), ".kube", "config")
}

func DefaultConfigFile() string {
	return filepath.Join(HomeDir(), ".config", appName, "config.yaml")
}
