//go:build linux

package loop

import "github.com/kestrelio/coro/poller"

func defaultPoller(maxEvents int) (poller.Poller, error) {
	p, err := poller.NewEpoll(maxEvents)
	if err != nil {
		// Fall back to the portable select(2) variant rather than
		// failing Loop construction outright (e.g. under a sandboxed
		// environment that blocks epoll_create1).
		return poller.NewSelect(), nil
	}
	return p, nil
}
