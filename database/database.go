package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lucsky/cuid"
	"github.com/threadlyhq/replybot/database/db"
	"github.com/threadlyhq/replybot/model"
)

// ErrRetryNotAllowed is returned when a manual retry targets an item that is
// not failed, is out of retries, or belongs to another workspace.
var ErrRetryNotAllowed = errors.New("item is not eligible for retry")

type Database struct {
	connString string
	pool       *pgxpool.Pool
}

func NewDatabase(connString string) *Database {
	return &Database{
		connString: connString,
	}
}

func (d *Database) Connect(ctx context.Context) error {
	var err error
	d.pool, err = pgxpool.New(ctx, d.connString)
	if err != nil {
		return err
	}
	return nil
}

func (d *Database) Disconnect() {
	d.pool.Close()
}

func (d *Database) GetAccountByExternalID(ctx context.Context, externalID string) (*model.SocialAccount, error) {
	rows, err := d.pool.Query(ctx, `
	SELECT
		id,
		workspace_id,
		external_id,
		username
	FROM social_accounts
	WHERE external_id = $1
	LIMIT 1`,
		externalID,
	)
	if err != nil {
		return nil, err
	}
	raw, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[db.SocialAccount])
	if err != nil {
		return nil, err
	}
	return model.SocialAccountFromRow(raw), nil
}

func (d *Database) InsertComment(ctx context.Context, c model.Comment) (string, error) {
	id := cuid.New()
	_, err := d.pool.Exec(ctx, `
	INSERT INTO comments (
		id, workspace_id, account_id, external_id, external_post_id,
		external_author_id, external_author_username, text, parent_external_id,
		raw_payload, is_spam, replied, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, false, $12)`,
		id,
		c.WorkspaceID,
		c.AccountID,
		c.ExternalID,
		c.ExternalPostID,
		c.ExternalAuthorID,
		c.ExternalAuthorUsername,
		c.Text,
		c.ParentExternalID,
		c.RawPayload,
		c.IsSpam,
		time.Now().UTC(), // the DB stores timezones and assumes UTC
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// FindCommentByExternalID looks up an already ingested comment. A nil result
// with a nil error means the comment has not been seen.
func (d *Database) FindCommentByExternalID(ctx context.Context, accountID string, externalID string) (*model.Comment, error) {
	rows, err := d.pool.Query(ctx, `
	SELECT
		id,
		workspace_id,
		account_id,
		external_id,
		external_post_id,
		external_author_id,
		external_author_username,
		text,
		parent_external_id,
		raw_payload,
		is_spam,
		replied,
		matched_rule_id,
		reply_sent_at,
		reply_error,
		created_at
	FROM comments
	WHERE account_id = $1 AND external_id = $2
	LIMIT 1`,
		accountID,
		externalID,
	)
	if err != nil {
		return nil, err
	}
	raw, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[db.Comment])
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return model.CommentFromRow(raw), nil
}

func (d *Database) SetMatchedRule(ctx context.Context, commentID string, ruleID string) error {
	_, err := d.pool.Exec(ctx, `
	UPDATE comments SET matched_rule_id = $2 WHERE id = $1`,
		commentID,
		ruleID,
	)
	return err
}

func (d *Database) MarkCommentReplied(ctx context.Context, commentID string) error {
	_, err := d.pool.Exec(ctx, `
	UPDATE comments
	SET replied = true, reply_sent_at = $2, reply_error = NULL
	WHERE id = $1`,
		commentID,
		time.Now().UTC(),
	)
	return err
}

func (d *Database) SetCommentReplyError(ctx context.Context, commentID string, message string) error {
	_, err := d.pool.Exec(ctx, `
	UPDATE comments SET reply_error = $2 WHERE id = $1`,
		commentID,
		message,
	)
	return err
}

// GetActiveRules returns the active rules scoped to a workspace and account,
// highest priority first. Equal priorities fall back to creation order.
func (d *Database) GetActiveRules(ctx context.Context, workspaceID string, accountID string) ([]model.Rule, error) {
	var rules []model.Rule
	rows, err := d.pool.Query(ctx, `
	SELECT
		id,
		workspace_id,
		account_id,
		name,
		trigger_keywords,
		exclude_keywords,
		match_mode,
		reply_content,
		template_id,
		reply_delay_seconds,
		max_replies_per_hour,
		max_replies_per_user,
		is_active,
		priority,
		created_at
	FROM auto_reply_rules
	WHERE workspace_id = $1
	  AND account_id = $2
	  AND is_active = true
	ORDER BY priority DESC, created_at ASC`,
		workspaceID,
		accountID,
	)
	if err != nil {
		return nil, err
	}

	raws, err := pgx.CollectRows(rows, pgx.RowToStructByName[db.Rule])
	if err != nil {
		return nil, err
	}

	for _, raw := range raws {
		rule, err := model.RuleFromRow(raw)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}

	return rules, nil
}

func (d *Database) GetTemplateContent(ctx context.Context, templateID string) (string, error) {
	rows, err := d.pool.Query(ctx, `
	SELECT id, workspace_id, name, content FROM reply_templates WHERE id = $1`,
		templateID,
	)
	if err != nil {
		return "", err
	}
	raw, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[db.ReplyTemplate])
	if err != nil {
		return "", err
	}
	return raw.Content, nil
}

func (d *Database) GetWorkspaceLocale(ctx context.Context, workspaceID string) (string, error) {
	var locale string
	err := d.pool.QueryRow(ctx, `
	SELECT display_locale FROM workspaces WHERE id = $1`,
		workspaceID,
	).Scan(&locale)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return locale, nil
}

func (d *Database) EnqueueReply(ctx context.Context, commentID string, ruleID string, replyText string, scheduledAt time.Time) (string, error) {
	id := cuid.New()
	_, err := d.pool.Exec(ctx, `
	INSERT INTO reply_queue (
		id, comment_id, rule_id, reply_text, status, scheduled_at, retry_count, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, 0, $7)`,
		id,
		commentID,
		ruleID,
		replyText,
		model.ReplyStatusPending,
		scheduledAt.UTC(),
		time.Now().UTC(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

/*
ClaimDueReplies atomically claims up to batchSize due pending items by moving
them to 'processing', and returns them joined with the comment, rule and
account context needed to publish. SKIP LOCKED keeps overlapping scheduler
ticks from claiming the same rows, so each item is processed at most once per
claim.
*/
func (d *Database) ClaimDueReplies(ctx context.Context, batchSize int, maxRetries int) ([]model.PendingReply, error) {
	var pending []model.PendingReply
	rows, err := d.pool.Query(ctx, `
	WITH claimed AS (
		UPDATE reply_queue
		SET status = 'processing'
		WHERE id IN (
			SELECT id
			FROM reply_queue
			WHERE status = 'pending'
			  AND scheduled_at <= now()
			  AND retry_count < $1
			ORDER BY scheduled_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, comment_id, rule_id, reply_text, retry_count, scheduled_at
	)
	SELECT
		q.id,
		q.comment_id,
		q.rule_id,
		q.reply_text,
		q.retry_count,
		c.workspace_id,
		c.account_id,
		a.external_id AS account_external_id,
		c.external_id AS comment_external_id,
		c.external_author_id,
		r.max_replies_per_hour,
		r.max_replies_per_user
	FROM claimed q
	JOIN comments c ON c.id = q.comment_id
	JOIN auto_reply_rules r ON r.id = q.rule_id
	JOIN social_accounts a ON a.id = c.account_id
	ORDER BY q.scheduled_at ASC`,
		maxRetries,
		batchSize,
	)
	if err != nil {
		return nil, err
	}

	raws, err := pgx.CollectRows(rows, pgx.RowToStructByName[db.PendingReply])
	if err != nil {
		return nil, err
	}

	for _, raw := range raws {
		pending = append(pending, *model.PendingReplyFromRow(raw))
	}

	return pending, nil
}

func (d *Database) CompleteReply(ctx context.Context, itemID string, externalReplyID string) error {
	_, err := d.pool.Exec(ctx, `
	UPDATE reply_queue
	SET status = $2, processed_at = $3, external_reply_id = $4, error_message = NULL
	WHERE id = $1`,
		itemID,
		model.ReplyStatusCompleted,
		time.Now().UTC(),
		externalReplyID,
	)
	return err
}

func (d *Database) FailReply(ctx context.Context, itemID string, message string) error {
	_, err := d.pool.Exec(ctx, `
	UPDATE reply_queue
	SET status = $2, processed_at = $3, error_message = $4
	WHERE id = $1`,
		itemID,
		model.ReplyStatusFailed,
		time.Now().UTC(),
		message,
	)
	return err
}

// RescheduleRetry re-arms a claimed item for another attempt after a
// temporary failure. retryCount is the new, already incremented count.
func (d *Database) RescheduleRetry(ctx context.Context, itemID string, retryCount int, nextAt time.Time, message string) error {
	_, err := d.pool.Exec(ctx, `
	UPDATE reply_queue
	SET status = $2, scheduled_at = $3, retry_count = $4, error_message = $5
	WHERE id = $1`,
		itemID,
		model.ReplyStatusPending,
		nextAt.UTC(),
		retryCount,
		message,
	)
	return err
}

// PostponeReply reschedules an item denied by the internal rate limit.
// retry_count is deliberately untouched: backpressure is not a fault.
func (d *Database) PostponeReply(ctx context.Context, itemID string, nextAt time.Time) error {
	_, err := d.pool.Exec(ctx, `
	UPDATE reply_queue
	SET status = $2, scheduled_at = $3
	WHERE id = $1`,
		itemID,
		model.ReplyStatusPostponed,
		nextAt.UTC(),
	)
	return err
}

// ReleasePostponed re-arms postponed items whose reschedule time has come.
func (d *Database) ReleasePostponed(ctx context.Context) (int64, error) {
	tag, err := d.pool.Exec(ctx, `
	UPDATE reply_queue
	SET status = $1
	WHERE status = $2 AND scheduled_at <= now()`,
		model.ReplyStatusPending,
		model.ReplyStatusPostponed,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ResetFailedReply is the manual retry path: failed → pending, due now.
// The update is conditional so an ineligible or foreign item is a no-op.
func (d *Database) ResetFailedReply(ctx context.Context, itemID string, workspaceID string, maxRetries int) error {
	tag, err := d.pool.Exec(ctx, `
	UPDATE reply_queue q
	SET status = $4, scheduled_at = $5, error_message = NULL
	FROM comments c
	WHERE q.id = $1
	  AND q.comment_id = c.id
	  AND c.workspace_id = $2
	  AND q.status = 'failed'
	  AND q.retry_count < $3`,
		itemID,
		workspaceID,
		maxRetries,
		model.ReplyStatusPending,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRetryNotAllowed
	}
	return nil
}

func (d *Database) GetQueueItem(ctx context.Context, itemID string) (*model.QueueItem, error) {
	rows, err := d.pool.Query(ctx, `
	SELECT
		id,
		comment_id,
		rule_id,
		reply_text,
		status,
		scheduled_at,
		processed_at,
		retry_count,
		error_message,
		external_reply_id,
		created_at
	FROM reply_queue
	WHERE id = $1`,
		itemID,
	)
	if err != nil {
		return nil, err
	}
	raw, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[db.ReplyQueue])
	if err != nil {
		return nil, err
	}
	return model.QueueItemFromRow(raw)
}

func (d *Database) CountRepliesByStatus(ctx context.Context) (map[model.ReplyStatus]int, error) {
	counts := map[model.ReplyStatus]int{}
	rows, err := d.pool.Query(ctx, `
	SELECT status, count(*) FROM reply_queue GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var raw string
		var count int
		if err := rows.Scan(&raw, &count); err != nil {
			return nil, err
		}
		status, err := model.ParseReplyStatus(raw)
		if err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

/*
CheckRateLimit answers "can this rule reply to this external user right now"
as a single boolean read over the audit log: sent replies in the rolling hour
against the rule's hourly bound, and sent replies to the user so far today
against the per-user bound. A bound of zero means unlimited.
*/
func (d *Database) CheckRateLimit(ctx context.Context, scope model.RateScope) (bool, error) {
	var allowed bool
	err := d.pool.QueryRow(ctx, `
	SELECT
		($5 <= 0 OR count(*) FILTER (
			WHERE created_at > now() - interval '1 hour'
		) < $5)
		AND
		($6 <= 0 OR count(*) FILTER (
			WHERE external_user_id = $4
			  AND created_at >= date_trunc('day', now())
		) < $6)
	FROM auto_reply_logs
	WHERE workspace_id = $1
	  AND account_id = $2
	  AND rule_id = $3
	  AND status = 'sent'`,
		scope.WorkspaceID,
		scope.AccountID,
		scope.RuleID,
		scope.ExternalUserID,
		scope.MaxRepliesPerHour,
		scope.MaxRepliesPerUser,
	).Scan(&allowed)
	if err != nil {
		return false, err
	}
	return allowed, nil
}

func (d *Database) AddReplyLog(ctx context.Context, entry model.ReplyLog) error {
	// don't really care about the result, as long as this succeeds
	_, err := d.pool.Exec(ctx, `
	INSERT INTO auto_reply_logs (
		id, workspace_id, account_id, rule_id, comment_id, reply_queue_id,
		external_user_id, external_reply_id, status, detail, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, NULLIF($10, ''), $11)`,
		cuid.New(),
		entry.WorkspaceID,
		entry.AccountID,
		entry.RuleID,
		entry.CommentID,
		entry.ReplyQueueID,
		entry.ExternalUserID,
		entry.ExternalReplyID,
		entry.Status,
		entry.Detail,
		time.Now().UTC(), // the DB stores timezones and assumes UTC
	)
	if err != nil {
		return err
	}
	return nil
}
