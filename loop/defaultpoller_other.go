//go:build !linux

package loop

import "github.com/kestrelio/coro/poller"

func defaultPoller(maxEvents int) (poller.Poller, error) {
	return poller.NewSelect(), nil
}
