package notify

import (
	"log"
	"sync"
	"time"
)

// alertCooldown throttles repeat alerts per parameter so a sensor stuck in
// the dangerous band doesn't flood the farmer's phone.
const alertCooldown = 30 * time.Minute

// Provider sends one alert message to the configured recipient.
type Provider interface {
	SendAlert(phone, message string) error
	GetName() string
}

// Notifier pushes environment alerts to the farmer over a messaging provider.
type Notifier struct {
	provider Provider
	phone    string

	mu       sync.Mutex
	lastSent map[string]time.Time
	now      func() time.Time
}

func NewNotifier(provider Provider, phone string) *Notifier {
	return &Notifier{
		provider: provider,
		phone:    phone,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Alert sends message for the given parameter unless one went out within the
// cooldown window. Delivery failures are logged, never returned; alerting is
// best effort.
func (n *Notifier) Alert(parameter, message string) {
	n.mu.Lock()
	last, ok := n.lastSent[parameter]
	if ok && n.now().Sub(last) < alertCooldown {
		n.mu.Unlock()
		return
	}
	n.lastSent[parameter] = n.now()
	n.mu.Unlock()

	if err := n.provider.SendAlert(n.phone, message); err != nil {
		log.Printf("[Notify] %s alert failed via %s: %v", parameter, n.provider.GetName(), err)
		return
	}
	log.Printf("[Notify] %s alert sent via %s", parameter, n.provider.GetName())
}
