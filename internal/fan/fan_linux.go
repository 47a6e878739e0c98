//go:build linux

package fan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var pwmName = regexp.MustCompile(`^pwm(\d+)$`)

// LinuxLister lists the PWM channels under /sys/class/hwmon.
type LinuxLister struct {
	root string
}

func newPlatformLister() Lister {
	return &LinuxLister{root: "/sys/class/hwmon"}
}

// GetFans returns one entry per pwmN channel with its duty, RPM and mode.
func (l *LinuxLister) GetFans(ctx context.Context) ([]*Info, error) {
	chips, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read hwmon directory: %w", err)
	}

	fans := []*Info{}
	for _, chip := range chips {
		dir := filepath.Join(l.root, chip.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		chipName := strings.TrimSpace(readString(filepath.Join(dir, "name")))

		for _, e := range entries {
			m := pwmName.FindStringSubmatch(e.Name())
			if m == nil {
				continue
			}
			pwmPath := filepath.Join(dir, e.Name())
			raw, err := readInt(pwmPath)
			if err != nil {
				continue
			}

			info := &Info{
				Name:  pwmPath,
				Speed: pwmToPercent(raw),
			}
			if chipName != "" {
				info.Name = fmt.Sprintf("%s/%s (%s)", chip.Name(), e.Name(), chipName)
			}
			if rpm, err := readInt(filepath.Join(dir, "fan"+m[1]+"_input")); err == nil {
				info.RPM = rpm
			}
			info.MaxRPM = estimateMaxRPM(info.RPM, info.Speed)
			info.Manual = strings.TrimSpace(readString(pwmPath+"_enable")) == enableManual
			fans = append(fans, info)
		}
	}
	return fans, nil
}

func readString(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(b)
}
