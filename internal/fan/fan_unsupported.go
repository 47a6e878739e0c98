//go:build !linux && !windows

package fan

import "context"

// UnsupportedLister is a fallback for unsupported platforms
type UnsupportedLister struct{}

func newPlatformLister() Lister {
	return &UnsupportedLister{}
}

// GetFans returns an error for unsupported platforms
func (l *UnsupportedLister) GetFans(ctx context.Context) ([]*Info, error) {
	return nil, ErrUnsupported
}
