package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/stretchr/testify/mock"
)

// MockEmailSink records outbound mail without sending anything.
type MockEmailSink struct {
	mock.Mock
}

func (m *MockEmailSink) SendChallenge(toEmail, code string) {
	m.Called(toEmail, code)
}

func (m *MockEmailSink) SendAlertTriggered(toEmail string, currentRate, targetRate float64, condition string) {
	m.Called(toEmail, currentRate, targetRate, condition)
}

// authedRequest builds a request carrying the user ID the auth middleware
// would have attached.
func authedRequest(method, target string, body io.Reader, userID int64) *http.Request {
	req := httptest.NewRequest(method, target, body)
	ctx := context.WithValue(req.Context(), "userID", userID)
	return req.WithContext(ctx)
}
