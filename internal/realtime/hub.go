package realtime

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"broiler-backend/internal/models"
	"broiler-backend/internal/notify"
	"broiler-backend/internal/thresholds"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event is one websocket frame pushed to dashboard clients.
type Event struct {
	Type           string                               `json:"type"` // "reading" or "alert"
	Reading        *models.SensorReading                `json:"reading,omitempty"`
	Classification map[string]thresholds.Classification `json:"classification,omitempty"`
	Parameter      string                               `json:"parameter,omitempty"`
	Status         thresholds.Status                    `json:"status,omitempty"`
	Message        string                               `json:"message,omitempty"`
}

// Hub fans sensor readings out to connected dashboard websockets. Readings
// classified dangerous additionally raise an alert frame.
type Hub struct {
	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex
	broadcast  chan Event

	// referenceAge supplies the batch age alerts are banded on.
	referenceAge func() int

	// notifier, when set, relays dangerous-band alerts to the farmer's
	// phone in addition to the websocket frame.
	notifier *notify.Notifier
}

// SetNotifier attaches an out-of-band alert channel. Call before Run.
func (h *Hub) SetNotifier(n *notify.Notifier) {
	h.notifier = n
}

func NewHub(referenceAge func() int) *Hub {
	if referenceAge == nil {
		referenceAge = func() int { return 22 }
	}
	return &Hub{
		clients:      make(map[*websocket.Conn]bool),
		broadcast:    make(chan Event, 64),
		referenceAge: referenceAge,
	}
}

// Run drains the broadcast channel. Call it once from main.
func (h *Hub) Run() {
	for event := range h.broadcast {
		h.clientsMux.Lock()
		for client := range h.clients {
			if err := client.WriteJSON(event); err != nil {
				client.Close()
				delete(h.clients, client)
			}
		}
		h.clientsMux.Unlock()
	}
}

// HandleWebSocket upgrades the connection and keeps it registered until the
// client goes away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[Realtime] WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	h.clientsMux.Lock()
	h.clients[conn] = true
	h.clientsMux.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.clientsMux.Lock()
			delete(h.clients, conn)
			h.clientsMux.Unlock()
			break
		}
	}
}

// BroadcastReading pushes a classified reading to every client, plus an
// alert frame for each parameter in the dangerous band.
func (h *Hub) BroadcastReading(reading *models.SensorReading) {
	age := h.referenceAge()

	classification := make(map[string]thresholds.Classification, len(thresholds.Parameters))
	for _, parameter := range thresholds.Parameters {
		classification[parameter] = thresholds.Classify(parameter, parameterValue(reading, parameter), age)
	}

	h.send(Event{Type: "reading", Reading: reading, Classification: classification})

	for _, parameter := range thresholds.Parameters {
		c := classification[parameter]
		if c.Status == thresholds.StatusDangerous {
			message := parameter + " outside ideal range " + c.IdealRange
			h.send(Event{
				Type:      "alert",
				Parameter: parameter,
				Status:    c.Status,
				Message:   message,
			})
			if h.notifier != nil {
				h.notifier.Alert(parameter, message)
			}
		}
	}
}

// send never blocks; a full channel drops the frame, clients catch up on the
// next reading.
func (h *Hub) send(event Event) {
	select {
	case h.broadcast <- event:
	default:
		log.Println("[Realtime] Broadcast buffer full, dropping frame")
	}
}

func parameterValue(r *models.SensorReading, parameter string) float64 {
	switch parameter {
	case thresholds.ParamTemperature:
		return r.Temperature
	case thresholds.ParamHumidity:
		return r.Humidity
	case thresholds.ParamAmmonia:
		return r.Ammonia
	case thresholds.ParamMethane:
		return r.Methane
	case thresholds.ParamH2S:
		return r.H2S
	case thresholds.ParamIntensity:
		return r.Intensity
	}
	return 0
}
