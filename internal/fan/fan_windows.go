//go:build windows

package fan

import (
	"context"
	"fmt"

	"github.com/StackExchange/wmi"
)

// WindowsLister reads Win32_Fan. Most vendors do not populate it, in which
// case the list is empty.
type WindowsLister struct{}

func newPlatformLister() Lister {
	return &WindowsLister{}
}

// Win32_Fan represents WMI Win32_Fan class
type Win32_Fan struct {
	DeviceID      string
	Name          string
	DesiredSpeed  uint64
	VariableSpeed bool
}

// GetFans returns fan information
func (l *WindowsLister) GetFans(ctx context.Context) ([]*Info, error) {
	var wmiFans []Win32_Fan
	if err := wmi.Query("SELECT DeviceID, Name, DesiredSpeed, VariableSpeed FROM Win32_Fan", &wmiFans); err != nil {
		return nil, fmt.Errorf("failed to query WMI: %w", err)
	}

	fans := make([]*Info, 0, len(wmiFans))
	for _, f := range wmiFans {
		name := f.Name
		if name == "" {
			name = f.DeviceID
		}
		fans = append(fans, &Info{
			Name:   name,
			RPM:    int(f.DesiredSpeed),
			Manual: f.VariableSpeed,
		})
	}
	return fans, nil
}
