package notification

import "sync"

// SentNotice is one captured delivery
type SentNotice struct {
	Type NoticeType
	Data NotificationData
}

// MockNotifier records notices instead of delivering them. Tests and the
// in-memory server mode use it.
type MockNotifier struct {
	mu   sync.Mutex
	sent []SentNotice
}

// NewMockNotifier creates an empty mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// Send records the notice
func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentNotice{Type: noticeType, Data: notification})
	return nil
}

// Sent returns a copy of the captured notices in send order
func (m *MockNotifier) Sent() []SentNotice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentNotice, len(m.sent))
	copy(out, m.sent)
	return out
}

// LastTo returns the most recent notice sent to the address, if any
func (m *MockNotifier) LastTo(to string) (SentNotice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Data.To == to {
			return m.sent[i], true
		}
	}
	return SentNotice{}, false
}
