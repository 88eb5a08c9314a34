package envmon

import (
	"fmt"
	"time"
)

// The devtools check compares the outer and inner window dimensions: a
// docked inspector widens the gap on one axis well past normal chrome.
// It is a heuristic with known false positives on narrow viewports and
// heavily customized browsers, which is why it is polled rather than
// trusted as an event, and why its threshold is configurable.

// pollDevtools runs the heuristic on a fixed interval until stop closes.
func (m *Monitor) pollDevtools(stop <-chan struct{}) {
	ticker := time.NewTicker(m.cfg.DevtoolsPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.checkDevtools()
		}
	}
}

// checkDevtools runs one poll pass and reports whether it fired.
func (m *Monitor) checkDevtools() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseMonitoring || m.display == nil {
		return false
	}

	innerW, innerH := m.display.InnerSize()
	outerW, outerH := m.display.OuterSize()

	gapW := outerW - innerW
	gapH := outerH - innerH
	if gapW < m.cfg.DevtoolsGapPx && gapH < m.cfg.DevtoolsGapPx {
		return false
	}

	m.recordLocked(DevTools,
		fmt.Sprintf("window gap %dx%d px", gapW, gapH))
	return true
}
