//go:build !unix

package gpu

// isRoot reports true so nvidia-settings is never wrapped in sudo.
func isRoot() bool {
	return true
}
