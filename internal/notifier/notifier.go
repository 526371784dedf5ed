// Package notifier pushes run lifecycle notifications to external services
// via shoutrrr URLs (Discord, Telegram, ntfy, email and friends).
package notifier

import (
	"fmt"
	"strings"
	"sync"

	"github.com/containrrr/shoutrrr"

	"github.com/mescon/Dupearr/internal/domain"
	"github.com/mescon/Dupearr/internal/eventbus"
	"github.com/mescon/Dupearr/internal/logger"
)

// sendFunc delivers one message to one shoutrrr URL. Swappable in tests.
type sendFunc func(url, message string) error

// Notifier subscribes to run events and fans each notification out to every
// configured shoutrrr URL.
type Notifier struct {
	mu   sync.RWMutex
	urls []string
	send sendFunc
}

// New creates a Notifier for the given shoutrrr URLs. Invalid or empty URLs
// are kept out of the send list.
func New(urls []string) *Notifier {
	n := &Notifier{send: shoutrrrSend}
	n.SetURLs(urls)
	return n
}

func shoutrrrSend(url, message string) error {
	return shoutrrr.Send(url, message)
}

// SetURLs replaces the notification targets.
func (n *Notifier) SetURLs(urls []string) {
	cleaned := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u != "" {
			cleaned = append(cleaned, u)
		}
	}
	n.mu.Lock()
	n.urls = cleaned
	n.mu.Unlock()
}

// Start subscribes the notifier to run lifecycle events on the bus.
func (n *Notifier) Start(bus eventbus.Publisher) {
	bus.Subscribe(domain.RunCompleted, n.handleRunCompleted)
	bus.Subscribe(domain.RunFailed, n.handleRunFailed)
	bus.Subscribe(domain.PlanWritten, n.handlePlanWritten)
}

func (n *Notifier) handleRunCompleted(e domain.Event) {
	kind, _ := e.GetString("kind")
	groups, _ := e.GetInt("groups_found")

	var msg string
	if groups == 0 {
		msg = fmt.Sprintf("Dupearr: %s run %s completed, no potential duplicates found", kind, e.RunID)
	} else {
		msg = fmt.Sprintf("Dupearr: %s run %s completed, %d potential duplicate group(s) found", kind, e.RunID, groups)
	}
	n.Notify(msg)
}

func (n *Notifier) handleRunFailed(e domain.Event) {
	kind, _ := e.GetString("kind")
	errMsg, _ := e.GetString("error")
	n.Notify(fmt.Sprintf("Dupearr: %s run %s failed: %s", kind, e.RunID, errMsg))
}

func (n *Notifier) handlePlanWritten(e domain.Event) {
	path, _ := e.GetString("script_path")
	removals, _ := e.GetInt("removal_count")
	n.Notify(fmt.Sprintf("Dupearr: cleanup plan written to %s (%d suggested removal(s), review before running)", path, removals))
}

// Notify sends a message to all configured URLs. Failures are logged per URL
// and never abort the remaining sends.
func (n *Notifier) Notify(message string) {
	n.mu.RLock()
	urls := n.urls
	n.mu.RUnlock()

	for _, url := range urls {
		if err := n.send(url, message); err != nil {
			logger.Errorf("Notification to %s failed: %v", redactURL(url), err)
			continue
		}
		logger.Debugf("Notification sent via %s", redactURL(url))
	}
}

// redactURL strips everything after the scheme so tokens embedded in shoutrrr
// URLs never reach the logs.
func redactURL(url string) string {
	if i := strings.Index(url, "://"); i > 0 {
		return url[:i]
	}
	return "unknown"
}
