// Package mocks holds testify mocks of the gateway and store interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"

	"meetprep/internal/gateway"
	"meetprep/internal/models"
)

// CalendarGateway is a mock type for the gateway.CalendarGateway type.
type CalendarGateway struct {
	mock.Mock
}

func (_m *CalendarGateway) ListEvents(ctx context.Context, calendarID string, q gateway.EventQuery) ([]models.CalendarEvent, error) {
	ret := _m.Called(ctx, calendarID, q)
	events, _ := ret.Get(0).([]models.CalendarEvent)
	return events, ret.Error(1)
}

// MailGateway is a mock type for the gateway.MailGateway type.
type MailGateway struct {
	mock.Mock
}

func (_m *MailGateway) Search(ctx context.Context, query string, maxResults int64) ([]string, error) {
	ret := _m.Called(ctx, query, maxResults)
	ids, _ := ret.Get(0).([]string)
	return ids, ret.Error(1)
}

func (_m *MailGateway) GetMetadata(ctx context.Context, id string) (models.EmailMessage, error) {
	ret := _m.Called(ctx, id)
	msg, _ := ret.Get(0).(models.EmailMessage)
	return msg, ret.Error(1)
}

func (_m *MailGateway) GetFull(ctx context.Context, id string) (models.EmailMessage, error) {
	ret := _m.Called(ctx, id)
	msg, _ := ret.Get(0).(models.EmailMessage)
	return msg, ret.Error(1)
}

func (_m *MailGateway) Send(ctx context.Context, raw []byte) error {
	ret := _m.Called(ctx, raw)
	return ret.Error(0)
}

// DocumentGateway is a mock type for the gateway.DocumentGateway type.
type DocumentGateway struct {
	mock.Mock
}

func (_m *DocumentGateway) Search(ctx context.Context, query string, maxResults int64) ([]models.DriveDocument, error) {
	ret := _m.Called(ctx, query, maxResults)
	docs, _ := ret.Get(0).([]models.DriveDocument)
	return docs, ret.Error(1)
}

// TaskGateway is a mock type for the gateway.TaskGateway type.
type TaskGateway struct {
	mock.Mock
}

func (_m *TaskGateway) ListTaskLists(ctx context.Context, maxResults int64) ([]models.TaskList, error) {
	ret := _m.Called(ctx, maxResults)
	lists, _ := ret.Get(0).([]models.TaskList)
	return lists, ret.Error(1)
}

func (_m *TaskGateway) ListIncompleteTasks(ctx context.Context, list models.TaskList, maxResults int64) ([]models.TaskItem, error) {
	ret := _m.Called(ctx, list, maxResults)
	items, _ := ret.Get(0).([]models.TaskItem)
	return items, ret.Error(1)
}

// TextGenerator is a mock type for the gateway.TextGenerator type.
type TextGenerator struct {
	mock.Mock
}

func (_m *TextGenerator) Generate(ctx context.Context, p gateway.Prompt) (string, error) {
	ret := _m.Called(ctx, p)
	return ret.String(0), ret.Error(1)
}

// TokenGateway is a mock type for the gateway.TokenGateway type.
type TokenGateway struct {
	mock.Mock
}

func (_m *TokenGateway) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ret := _m.Called(ctx, refreshToken)
	tok, _ := ret.Get(0).(*oauth2.Token)
	return tok, ret.Error(1)
}

func (_m *TokenGateway) Connect(ctx context.Context, tok *oauth2.Token) (gateway.Services, error) {
	ret := _m.Called(ctx, tok)
	services, _ := ret.Get(0).(gateway.Services)
	return services, ret.Error(1)
}

// ServiceMocks bundles one mock per data gateway.
type ServiceMocks struct {
	Calendar  *CalendarGateway
	Mail      *MailGateway
	Documents *DocumentGateway
	Tasks     *TaskGateway
}

func NewServiceMocks() *ServiceMocks {
	return &ServiceMocks{
		Calendar:  &CalendarGateway{},
		Mail:      &MailGateway{},
		Documents: &DocumentGateway{},
		Tasks:     &TaskGateway{},
	}
}

// Services exposes the mocks as a gateway.Services bundle.
func (s *ServiceMocks) Services() gateway.Services {
	return gateway.Services{Calendar: s.Calendar, Mail: s.Mail, Documents: s.Documents, Tasks: s.Tasks}
}

func (s *ServiceMocks) AssertExpectations(t mock.TestingT) {
	s.Calendar.AssertExpectations(t)
	s.Mail.AssertExpectations(t)
	s.Documents.AssertExpectations(t)
	s.Tasks.AssertExpectations(t)
}
