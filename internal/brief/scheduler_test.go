package brief

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"meetprep/internal/models"
	"meetprep/mocks"
)

type fakePipelines struct {
	mu       sync.Mutex
	meetings []string
	digests  []string
	failFor  map[string]bool
}

func (f *fakePipelines) GenerateMeetingBriefs(_ context.Context, userID string) (*MeetingBriefResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meetings = append(f.meetings, userID)
	if f.failFor[userID] {
		return nil, &PipelineError{Feature: models.FeatureMeetingBrief, Err: errors.New("send failed")}
	}
	return &MeetingBriefResult{Success: true}, nil
}

func (f *fakePipelines) GeneratePriorityDigest(_ context.Context, userID string) (*PriorityDigestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.digests = append(f.digests, userID)
	return &PriorityDigestResult{Success: true}, nil
}

func TestScheduler_RunOnce(t *testing.T) {
	// 11:00 UTC is 07:00 in New York (EDT) and 15:00 in Dubai.
	now := time.Date(2026, 10, 16, 11, 0, 0, 0, time.UTC)
	st := &mocks.Store{}
	st.On("ListActiveUsers", mock.Anything).Return([]models.User{
		{ID: "ny", Timezone: "America/New_York", SendTime: "07:00", PriorityDigestEnabled: true},
		{ID: "utc", Timezone: "UTC", SendTime: "07:00", PriorityDigestEnabled: true},
		{ID: "bad", Timezone: "UTC", SendTime: "seven"},
		{ID: "dubai", Timezone: "Asia/Dubai", SendTime: "15:30"},
		{ID: "default", SendTime: "11:00"},
	}, nil)
	st.On("SucceededSince", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	pipelines := &fakePipelines{failFor: map[string]bool{"dubai": true}}

	s := NewScheduler(discardLogger(), st, pipelines, time.UTC)
	s.now = func() time.Time { return now }

	stats, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, CycleStats{Users: 5, Processed: 3, Failed: 1}, stats)
	assert.Equal(t, []string{"ny", "dubai", "default"}, pipelines.meetings)
	assert.Equal(t, []string{"ny"}, pipelines.digests)
	st.AssertExpectations(t)
}

func TestScheduler_SkipsBriefsAlreadySentToday(t *testing.T) {
	now := time.Date(2026, 10, 16, 11, 0, 0, 0, time.UTC)
	nyMidnight := time.Date(2026, 10, 16, 4, 0, 0, 0, time.UTC)
	utcMidnight := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	at := func(want time.Time) any {
		return mock.MatchedBy(func(since time.Time) bool { return since.Equal(want) })
	}

	st := &mocks.Store{}
	st.On("ListActiveUsers", mock.Anything).Return([]models.User{
		{ID: "sent", Timezone: "America/New_York", SendTime: "07:00"},
		{ID: "half", Timezone: "America/New_York", SendTime: "07:00", PriorityDigestEnabled: true},
		{ID: "lookup", Timezone: "UTC", SendTime: "11:00"},
	}, nil)
	st.On("SucceededSince", mock.Anything, "sent", models.FeatureMeetingBrief, at(nyMidnight)).Return(true, nil)
	st.On("SucceededSince", mock.Anything, "half", models.FeatureMeetingBrief, at(nyMidnight)).Return(true, nil)
	st.On("SucceededSince", mock.Anything, "half", models.FeaturePriorityDigest, at(nyMidnight)).Return(false, nil)
	st.On("SucceededSince", mock.Anything, "lookup", models.FeatureMeetingBrief, at(utcMidnight)).Return(false, errors.New("db busy"))
	pipelines := &fakePipelines{}

	s := NewScheduler(discardLogger(), st, pipelines, time.UTC)
	s.now = func() time.Time { return now }

	stats, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, CycleStats{Users: 3, Processed: 2, Skipped: 1}, stats)
	assert.Equal(t, []string{"lookup"}, pipelines.meetings)
	assert.Equal(t, []string{"half"}, pipelines.digests)
	st.AssertExpectations(t)
}

func TestScheduler_ListFailure(t *testing.T) {
	st := &mocks.Store{}
	st.On("ListActiveUsers", mock.Anything).Return(nil, errors.New("db down"))

	_, err := NewScheduler(discardLogger(), st, &fakePipelines{}, nil).RunOnce(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	st := &mocks.Store{}
	st.On("ListActiveUsers", mock.Anything).Return(nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewScheduler(discardLogger(), st, &fakePipelines{}, nil).Run(ctx, time.Hour) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSendHour(t *testing.T) {
	cases := []struct {
		in   string
		hour int
		ok   bool
	}{
		{"07:00", 7, true},
		{"23:59:00", 23, true},
		{" 9:15", 9, true},
		{"24:00", 0, false},
		{"", 0, false},
		{"noon", 0, false},
	}
	for _, c := range cases {
		hour, ok := sendHour(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		assert.Equal(t, c.hour, hour, c.in)
	}
}

func TestTokenManager_SharesRefresh(t *testing.T) {
	expired := testNow.Add(-time.Minute)
	fresh := testNow.Add(time.Hour)
	stale := &models.User{ID: "u1", GoogleAccessToken: "old", GoogleRefreshToken: "refresh", TokenExpiry: &expired}
	refreshed := &models.User{ID: "u1", GoogleAccessToken: "new", GoogleRefreshToken: "refresh", TokenExpiry: &fresh}

	st := &mocks.Store{}
	st.On("GetUser", mock.Anything, "u1").Return(stale, nil).Once()
	st.On("GetUser", mock.Anything, "u1").Return(refreshed, nil).Maybe()
	st.On("UpdateTokens", mock.Anything, "u1", "new", "", mock.Anything).Return(nil).Once()

	release := make(chan struct{})
	oauth := &mocks.TokenGateway{}
	oauth.On("Refresh", mock.Anything, "refresh").
		Run(func(mock.Arguments) { <-release }).
		Return(&oauth2.Token{AccessToken: "new", Expiry: fresh}, nil).Once()

	m := NewTokenManager(discardLogger(), st, oauth)
	m.now = clock

	var wg sync.WaitGroup
	tokens := make([]*oauth2.Token, 4)
	for i := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := m.Token(context.Background(), stale)
			assert.NoError(t, err)
			tokens[i] = tok
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, tok := range tokens {
		require.NotNil(t, tok)
		assert.Equal(t, "new", tok.AccessToken)
	}
	oauth.AssertNumberOfCalls(t, "Refresh", 1)
	st.AssertExpectations(t)
}

func TestTokenManager_CancelledCallerLeavesRefreshRunning(t *testing.T) {
	expired := testNow.Add(-time.Minute)
	fresh := testNow.Add(time.Hour)
	stale := &models.User{ID: "u1", GoogleAccessToken: "old", GoogleRefreshToken: "refresh", TokenExpiry: &expired}
	refreshed := &models.User{ID: "u1", GoogleAccessToken: "new", GoogleRefreshToken: "refresh", TokenExpiry: &fresh}

	st := &mocks.Store{}
	st.On("GetUser", mock.Anything, "u1").Return(stale, nil).Once()
	st.On("GetUser", mock.Anything, "u1").Return(refreshed, nil).Maybe()
	st.On("UpdateTokens", mock.Anything, "u1", "new", "", mock.Anything).Return(nil).Once()

	release := make(chan struct{})
	var refreshCtxErr error
	oauth := &mocks.TokenGateway{}
	oauth.On("Refresh", mock.Anything, "refresh").
		Run(func(args mock.Arguments) {
			<-release
			refreshCtxErr = args.Get(0).(context.Context).Err()
		}).
		Return(&oauth2.Token{AccessToken: "new", Expiry: fresh}, nil).Once()

	m := NewTokenManager(discardLogger(), st, oauth)
	m.now = clock

	first, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		tok, err := m.Token(first, stale)
		assert.Equal(t, "old", tok.AccessToken)
		firstDone <- err
	}()
	time.Sleep(20 * time.Millisecond)

	secondDone := make(chan *oauth2.Token, 1)
	go func() {
		tok, err := m.Token(context.Background(), stale)
		assert.NoError(t, err)
		secondDone <- tok
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstDone, context.Canceled)

	close(release)
	tok := <-secondDone
	require.NotNil(t, tok)
	assert.Equal(t, "new", tok.AccessToken)
	assert.NoError(t, refreshCtxErr)
	oauth.AssertNumberOfCalls(t, "Refresh", 1)
	st.AssertExpectations(t)
}

func TestTokenManager_UnknownExpiryIsTrusted(t *testing.T) {
	m := NewTokenManager(discardLogger(), &mocks.Store{}, &mocks.TokenGateway{})
	m.now = clock

	tok, err := m.Token(context.Background(), &models.User{ID: "u1", GoogleAccessToken: "a", GoogleRefreshToken: "r"})

	require.NoError(t, err)
	assert.Equal(t, "a", tok.AccessToken)
}
