package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const aisensyBaseURL = "https://backend.aisensy.com/campaign/t1/api/v2"

// WhatsAppService delivers alerts through the AiSensy WhatsApp Business API.
type WhatsAppService struct {
	apiKey       string
	campaignName string
	client       *http.Client
}

func NewWhatsAppService(apiKey, campaignName string) *WhatsAppService {
	return &WhatsAppService{
		apiKey:       apiKey,
		campaignName: campaignName,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *WhatsAppService) GetName() string {
	return "aisensy"
}

func (s *WhatsAppService) SendAlert(phone, message string) error {
	payload := map[string]interface{}{
		"apiKey":         s.apiKey,
		"campaignName":   s.campaignName,
		"destination":    phone,
		"userName":       "Farm Monitor",
		"templateParams": []string{message},
		"source":         "broiler-backend",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	resp, err := s.client.Post(aisensyBaseURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp API returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// MockService prints alerts to the log. Used when no API key is configured so
// development setups still show what would have been sent.
type MockService struct{}

func NewMockService() *MockService {
	return &MockService{}
}

func (s *MockService) GetName() string {
	return "mock"
}

func (s *MockService) SendAlert(phone, message string) error {
	log.Printf("[Notify] MOCK to %s: %s", phone, message)
	return nil
}
