package selector

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/threadlyhq/replybot/model"
)

type MockRuleStore struct {
	mock.Mock
}

func (m *MockRuleStore) GetActiveRules(ctx context.Context, workspaceID string, accountID string) ([]model.Rule, error) {
	args := m.Called(ctx, workspaceID, accountID)
	return args.Get(0).([]model.Rule), args.Error(1)
}

func (m *MockRuleStore) GetTemplateContent(ctx context.Context, templateID string) (string, error) {
	args := m.Called(ctx, templateID)
	return args.Get(0).(string), args.Error(1)
}

func (m *MockRuleStore) GetWorkspaceLocale(ctx context.Context, workspaceID string) (string, error) {
	args := m.Called(ctx, workspaceID)
	return args.Get(0).(string), args.Error(1)
}

func (m *MockRuleStore) EnqueueReply(ctx context.Context, commentID string, ruleID string, replyText string, scheduledAt time.Time) (string, error) {
	args := m.Called(ctx, commentID, ruleID, replyText, scheduledAt)
	return args.Get(0).(string), args.Error(1)
}

func (m *MockRuleStore) SetMatchedRule(ctx context.Context, commentID string, ruleID string) error {
	args := m.Called(ctx, commentID, ruleID)
	return args.Error(0)
}

type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) CheckRateLimit(ctx context.Context, scope model.RateScope) (bool, error) {
	args := m.Called(ctx, scope)
	return args.Get(0).(bool), args.Error(1)
}

func testComment() model.Comment {
	return model.Comment{
		ID:                     "cmt_1",
		WorkspaceID:            "ws_1",
		AccountID:              "acct_1",
		ExternalID:             "17843001",
		ExternalAuthorID:       "9001",
		ExternalAuthorUsername: "jamie",
		Text:                   "I have a question about pricing",
	}
}

func testRule(id string, priority int, triggers []string) model.Rule {
	return model.Rule{
		ID:                id,
		WorkspaceID:       "ws_1",
		AccountID:         "acct_1",
		Name:              "rule " + id,
		TriggerKeywords:   triggers,
		MatchMode:         model.MatchModeAny,
		ReplyContent:      "thanks {{username}}",
		ReplyDelay:        30 * time.Second,
		MaxRepliesPerHour: 10,
		MaxRepliesPerUser: 2,
		IsActive:          true,
		Priority:          priority,
	}
}

func TestHandleComment(t *testing.T) {
	t.Run("selects the highest-priority matching rule and enqueues once", func(t *testing.T) {
		comment := testComment()
		high := testRule("rule_high", 10, []string{"pricing"})
		low := testRule("rule_low", 5, []string{"question"})

		mockStore := new(MockRuleStore)
		// Rules arrive from the store already ordered by priority descending
		mockStore.On("GetActiveRules", mock.Anything, "ws_1", "acct_1").Return([]model.Rule{high, low}, nil)
		mockStore.On("GetWorkspaceLocale", mock.Anything, "ws_1").Return("en-US", nil)
		mockStore.On("EnqueueReply", mock.Anything, "cmt_1", "rule_high", "thanks jamie", mock.Anything).Return("item_1", nil)
		mockStore.On("SetMatchedRule", mock.Anything, "cmt_1", "rule_high").Return(nil)
		mockLimiter := new(MockRateLimiter)
		mockLimiter.On("CheckRateLimit", mock.Anything, mock.Anything).Return(true, nil)

		selected, err := NewSelector(mockStore, mockLimiter).HandleComment(context.TODO(), comment)
		assert.NoError(t, err)
		assert.NotNil(t, selected)
		assert.Equal(t, "rule_high", selected.ID)
		mockStore.AssertNumberOfCalls(t, "EnqueueReply", 1)
	})

	t.Run("schedules the reply after the rule delay", func(t *testing.T) {
		comment := testComment()
		rule := testRule("rule_1", 1, []string{"pricing"})
		rule.ReplyDelay = 5 * time.Minute

		var scheduledAt time.Time
		mockStore := new(MockRuleStore)
		mockStore.On("GetActiveRules", mock.Anything, "ws_1", "acct_1").Return([]model.Rule{rule}, nil)
		mockStore.On("GetWorkspaceLocale", mock.Anything, "ws_1").Return("en-US", nil)
		mockStore.On("EnqueueReply", mock.Anything, "cmt_1", "rule_1", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { scheduledAt = args.Get(4).(time.Time) }).
			Return("item_1", nil)
		mockStore.On("SetMatchedRule", mock.Anything, "cmt_1", "rule_1").Return(nil)
		mockLimiter := new(MockRateLimiter)
		mockLimiter.On("CheckRateLimit", mock.Anything, mock.Anything).Return(true, nil)

		_, err := NewSelector(mockStore, mockLimiter).HandleComment(context.TODO(), comment)
		assert.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC().Add(5*time.Minute), scheduledAt, 10*time.Second)
	})

	t.Run("falls through to the next rule when the first is rate limited", func(t *testing.T) {
		comment := testComment()
		high := testRule("rule_high", 10, []string{"pricing"})
		low := testRule("rule_low", 5, []string{"question"})

		mockStore := new(MockRuleStore)
		mockStore.On("GetActiveRules", mock.Anything, "ws_1", "acct_1").Return([]model.Rule{high, low}, nil)
		mockStore.On("GetWorkspaceLocale", mock.Anything, "ws_1").Return("en-US", nil)
		mockStore.On("EnqueueReply", mock.Anything, "cmt_1", "rule_low", mock.Anything, mock.Anything).Return("item_1", nil)
		mockStore.On("SetMatchedRule", mock.Anything, "cmt_1", "rule_low").Return(nil)
		mockLimiter := new(MockRateLimiter)
		mockLimiter.On("CheckRateLimit", mock.Anything, mock.MatchedBy(func(s model.RateScope) bool { return s.RuleID == "rule_high" })).Return(false, nil)
		mockLimiter.On("CheckRateLimit", mock.Anything, mock.MatchedBy(func(s model.RateScope) bool { return s.RuleID == "rule_low" })).Return(true, nil)

		selected, err := NewSelector(mockStore, mockLimiter).HandleComment(context.TODO(), comment)
		assert.NoError(t, err)
		assert.Equal(t, "rule_low", selected.ID)
	})

	t.Run("leaves the comment unmatched when no rule fires", func(t *testing.T) {
		comment := testComment()
		rule := testRule("rule_1", 1, []string{"refund"})

		mockStore := new(MockRuleStore)
		mockStore.On("GetActiveRules", mock.Anything, "ws_1", "acct_1").Return([]model.Rule{rule}, nil)
		mockLimiter := new(MockRateLimiter)

		selected, err := NewSelector(mockStore, mockLimiter).HandleComment(context.TODO(), comment)
		assert.NoError(t, err)
		assert.Nil(t, selected)
		mockStore.AssertNumberOfCalls(t, "EnqueueReply", 0)
		mockLimiter.AssertNumberOfCalls(t, "CheckRateLimit", 0)
	})

	t.Run("excluded keyword suppresses an otherwise matching rule", func(t *testing.T) {
		comment := testComment()
		rule := testRule("rule_1", 1, []string{"pricing"})
		rule.ExcludeKeywords = []string{"question"}

		mockStore := new(MockRuleStore)
		mockStore.On("GetActiveRules", mock.Anything, "ws_1", "acct_1").Return([]model.Rule{rule}, nil)
		mockLimiter := new(MockRateLimiter)

		selected, err := NewSelector(mockStore, mockLimiter).HandleComment(context.TODO(), comment)
		assert.NoError(t, err)
		assert.Nil(t, selected)
		mockStore.AssertNumberOfCalls(t, "EnqueueReply", 0)
	})

	t.Run("uses template content over inline content", func(t *testing.T) {
		comment := testComment()
		rule := testRule("rule_1", 1, []string{"pricing"})
		rule.TemplateID = "tpl_1"

		mockStore := new(MockRuleStore)
		mockStore.On("GetActiveRules", mock.Anything, "ws_1", "acct_1").Return([]model.Rule{rule}, nil)
		mockStore.On("GetTemplateContent", mock.Anything, "tpl_1").Return("hello {{username}}", nil)
		mockStore.On("GetWorkspaceLocale", mock.Anything, "ws_1").Return("en-US", nil)
		mockStore.On("EnqueueReply", mock.Anything, "cmt_1", "rule_1", "hello jamie", mock.Anything).Return("item_1", nil)
		mockStore.On("SetMatchedRule", mock.Anything, "cmt_1", "rule_1").Return(nil)
		mockLimiter := new(MockRateLimiter)
		mockLimiter.On("CheckRateLimit", mock.Anything, mock.Anything).Return(true, nil)

		_, err := NewSelector(mockStore, mockLimiter).HandleComment(context.TODO(), comment)
		assert.NoError(t, err)
		mockStore.AssertExpectations(t)
	})

	t.Run("propagates rule loading errors", func(t *testing.T) {
		mockStore := new(MockRuleStore)
		mockStore.On("GetActiveRules", mock.Anything, "ws_1", "acct_1").Return([]model.Rule{}, fmt.Errorf("connection refused"))
		mockLimiter := new(MockRateLimiter)

		selected, err := NewSelector(mockStore, mockLimiter).HandleComment(context.TODO(), testComment())
		assert.Error(t, err)
		assert.Nil(t, selected)
	})
}
