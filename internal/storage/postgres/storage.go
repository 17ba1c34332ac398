package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"

	"github.com/goserg/eventhub/internal/config"
	"github.com/goserg/eventhub/internal/domain"
	"github.com/goserg/eventhub/internal/migrate"
	"github.com/goserg/eventhub/internal/normalize"
	"github.com/goserg/eventhub/internal/storage"
)

const uniqueViolation = "23505"

type Storage struct {
	pool *pgxpool.Pool
	log  *logrus.Entry
}

var _ storage.Storage = (*Storage)(nil)

func New(ctx context.Context, l *logrus.Logger, cfg config.Postgres) (*Storage, error) {
	return Open(ctx, l, NewURLConnectionString(
		"postgres",
		cfg.Host+":"+strconv.Itoa(cfg.Port),
		cfg.DBName,
		cfg.Username,
		cfg.Password,
	), cfg.MaxConns)
}

// Open connects to dsn and applies pending migrations.
func Open(ctx context.Context, l *logrus.Logger, dsn string, maxConns int32) (*Storage, error) {
	log := l.WithFields(map[string]interface{}{
		"from": "postgres-storage",
	})
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	db := stdlib.OpenDB(*poolCfg.ConnConfig)
	err = migrate.UpPostgres(db)
	if closeErr := db.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.WithField("host", poolCfg.ConnConfig.Host).Info("storage connected")
	return &Storage{
		pool: pool,
		log:  log,
	}, nil
}

func NewURLConnectionString(protocol, host, dbName, username, password string) string {
	v := make(url.Values)
	v.Set("sslmode", "disable")
	u := url.URL{
		Scheme:   protocol,
		Host:     host,
		Path:     dbName,
		User:     url.UserPassword(username, password),
		RawQuery: v.Encode(),
	}
	return u.String()
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// querier is satisfied by the pool and by a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, name, email, allow_subscriptions, created_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.AllowSubscriptions, &u.RegisteredAt)
	return u, notFound(err)
}

func (s *Storage) GetUser(ctx context.Context, id int64) (domain.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Storage) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	if user.RegisteredAt.IsZero() {
		user.RegisteredAt = time.Now()
	}
	if user.ID == 0 {
		return scanUser(s.pool.QueryRow(ctx,
			`INSERT INTO users (name, email, allow_subscriptions, created_at) VALUES ($1, $2, $3, $4)
			 RETURNING `+userColumns,
			user.Name, user.Email, user.AllowSubscriptions, user.RegisteredAt))
	}
	return inTx(ctx, s.pool, func(tx pgx.Tx) (domain.User, error) {
		created, err := scanUser(tx.QueryRow(ctx,
			`INSERT INTO users (id, name, email, allow_subscriptions, created_at) VALUES ($1, $2, $3, $4, $5)
			 RETURNING `+userColumns,
			user.ID, user.Name, user.Email, user.AllowSubscriptions, user.RegisteredAt))
		if err != nil {
			return domain.User{}, err
		}
		return created, bumpSequence(ctx, tx, "users")
	})
}

// bumpSequence keeps the serial ahead of explicitly inserted ids.
func bumpSequence(ctx context.Context, tx pgx.Tx, tableName string) error {
	_, err := tx.Exec(ctx,
		`SELECT setval(pg_get_serial_sequence('`+tableName+`', 'id'), (SELECT MAX(id) FROM `+tableName+`))`)
	return err
}

const eventColumns = `id, title, initiator_id, participant_limit, request_moderation, confirmed_requests, created_at`

func scanEvent(row pgx.Row) (domain.Event, error) {
	var e domain.Event
	err := row.Scan(&e.ID, &e.Title, &e.InitiatorID, &e.ParticipantLimit, &e.RequestModeration, &e.ConfirmedRequests, &e.CreatedAt)
	return e, notFound(err)
}

func (s *Storage) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	return scanEvent(s.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

func (s *Storage) CreateEvent(ctx context.Context, event domain.Event) (domain.Event, error) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if event.ID == 0 {
		return scanEvent(s.pool.QueryRow(ctx,
			`INSERT INTO events (title, initiator_id, participant_limit, request_moderation, confirmed_requests, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+eventColumns,
			event.Title, event.InitiatorID, event.ParticipantLimit, event.RequestModeration, event.ConfirmedRequests, event.CreatedAt))
	}
	return inTx(ctx, s.pool, func(tx pgx.Tx) (domain.Event, error) {
		created, err := scanEvent(tx.QueryRow(ctx,
			`INSERT INTO events (id, title, initiator_id, participant_limit, request_moderation, confirmed_requests, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+eventColumns,
			event.ID, event.Title, event.InitiatorID, event.ParticipantLimit, event.RequestModeration, event.ConfirmedRequests, event.CreatedAt))
		if err != nil {
			return domain.Event{}, err
		}
		return created, bumpSequence(ctx, tx, "events")
	})
}

const requestColumns = `id, event_id, requester_id, status, created_at`

func scanRequests(rows pgx.Rows) ([]domain.ParticipationRequest, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ParticipationRequest, error) {
		var r domain.ParticipationRequest
		err := row.Scan(&r.ID, &r.EventID, &r.RequesterID, &r.Status, &r.Created)
		return r, err
	})
}

func (s *Storage) GetRequest(ctx context.Context, id int64) (domain.ParticipationRequest, error) {
	var r domain.ParticipationRequest
	err := s.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id).
		Scan(&r.ID, &r.EventID, &r.RequesterID, &r.Status, &r.Created)
	return r, notFound(err)
}

func (s *Storage) FindRequestsByIDs(ctx context.Context, ids []int64) ([]domain.ParticipationRequest, error) {
	return s.listRequests(ctx, `id = ANY($1)`, ids)
}

func (s *Storage) ListRequestsByEvent(ctx context.Context, eventID int64) ([]domain.ParticipationRequest, error) {
	return s.listRequests(ctx, `event_id = $1`, eventID)
}

func (s *Storage) ListRequestsByRequester(ctx context.Context, requesterID int64) ([]domain.ParticipationRequest, error) {
	return s.listRequests(ctx, `requester_id = $1`, requesterID)
}

func (s *Storage) listRequests(ctx context.Context, where string, arg any) ([]domain.ParticipationRequest, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+requestColumns+` FROM requests WHERE `+where+` ORDER BY id`, arg)
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

// lockEvent takes the row lock on the event and checks its counter.
func lockEvent(ctx context.Context, tx pgx.Tx, eventID int64, expected int) error {
	var confirmed int
	err := tx.QueryRow(ctx, `SELECT confirmed_requests FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&confirmed)
	if err != nil {
		return notFound(err)
	}
	if confirmed != expected {
		return domain.ErrConcurrentUpdate
	}
	return nil
}

func setCounter(ctx context.Context, tx pgx.Tx, event domain.Event) error {
	_, err := tx.Exec(ctx, `UPDATE events SET confirmed_requests = $2 WHERE id = $1`, event.ID, event.ConfirmedRequests)
	return err
}

func (s *Storage) CreateRequest(ctx context.Context, request domain.ParticipationRequest, event domain.Event, expectedConfirmed int) (domain.ParticipationRequest, error) {
	return inTx(ctx, s.pool, func(tx pgx.Tx) (domain.ParticipationRequest, error) {
		if err := lockEvent(ctx, tx, event.ID, expectedConfirmed); err != nil {
			return domain.ParticipationRequest{}, err
		}
		if err := setCounter(ctx, tx, event); err != nil {
			return domain.ParticipationRequest{}, err
		}
		err := tx.QueryRow(ctx,
			`INSERT INTO requests (event_id, requester_id, status, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
			request.EventID, request.RequesterID, request.Status, request.Created).Scan(&request.ID)
		return request, err
	})
}

func (s *Storage) SaveAdmission(ctx context.Context, event domain.Event, expectedConfirmed int, requests []domain.ParticipationRequest) error {
	return inTxSimple(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockEvent(ctx, tx, event.ID, expectedConfirmed); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, r := range requests {
			batch.Queue(`UPDATE requests SET status = $2 WHERE id = $1 AND status = $3`, r.ID, r.Status, domain.RequestPending)
		}
		results := tx.SendBatch(ctx, batch)
		for range requests {
			tag, err := results.Exec()
			if err == nil && tag.RowsAffected() == 0 {
				err = domain.ErrConcurrentUpdate
			}
			if err != nil {
				return errors.Join(err, results.Close())
			}
		}
		if err := results.Close(); err != nil {
			return err
		}
		return setCounter(ctx, tx, event)
	})
}

func (s *Storage) SaveCancellation(ctx context.Context, request domain.ParticipationRequest, event domain.Event, expectedConfirmed int) error {
	return inTxSimple(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockEvent(ctx, tx, event.ID, expectedConfirmed); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE requests SET status = $2 WHERE id = $1 AND status <> $3`,
			request.ID, request.Status, domain.RequestCanceled)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrConcurrentUpdate
		}
		return setCounter(ctx, tx, event)
	})
}

const reactionColumns = `id, event_id, user_id, type, created_at`

func (s *Storage) FindReaction(ctx context.Context, eventID, userID int64) (domain.Reaction, bool, error) {
	var r domain.Reaction
	err := s.pool.QueryRow(ctx, `SELECT `+reactionColumns+` FROM reactions WHERE event_id = $1 AND user_id = $2`, eventID, userID).
		Scan(&r.ID, &r.EventID, &r.UserID, &r.Type, &r.Created)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reaction{}, false, nil
	}
	if err != nil {
		return domain.Reaction{}, false, err
	}
	return r, true, nil
}

func (s *Storage) InsertReaction(ctx context.Context, reaction domain.Reaction) (domain.Reaction, error) {
	return insertReaction(ctx, s.pool, reaction)
}

func insertReaction(ctx context.Context, q querier, reaction domain.Reaction) (domain.Reaction, error) {
	if reaction.Created.IsZero() {
		reaction.Created = time.Now()
	}
	err := q.QueryRow(ctx,
		`INSERT INTO reactions (event_id, user_id, type, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		reaction.EventID, reaction.UserID, reaction.Type, reaction.Created).Scan(&reaction.ID)
	if isUniqueViolation(err) {
		return domain.Reaction{}, domain.ErrConcurrentUpdate
	}
	return reaction, err
}

func (s *Storage) DeleteReaction(ctx context.Context, eventID, userID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM reactions WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	return err
}

func (s *Storage) SwapReaction(ctx context.Context, next domain.Reaction) (domain.Reaction, error) {
	return inTx(ctx, s.pool, func(tx pgx.Tx) (domain.Reaction, error) {
		_, err := tx.Exec(ctx, `DELETE FROM reactions WHERE event_id = $1 AND user_id = $2`, next.EventID, next.UserID)
		if err != nil {
			return domain.Reaction{}, err
		}
		return insertReaction(ctx, tx, next)
	})
}

func (s *Storage) CountReactions(ctx context.Context, eventID int64, t domain.ReactionType) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reactions WHERE event_id = $1 AND type = $2`, eventID, t).Scan(&n)
	return n, err
}

const edgeColumns = `s.id, s.subscriber_id, s.target_user_id, s.friendship_status, s.created_at,
	p.id, p.name, p.email, p.allow_subscriptions, p.created_at`

func scanEdge(row pgx.Row) (domain.Subscription, error) {
	var e domain.Subscription
	err := row.Scan(&e.ID, &e.SubscriberID, &e.TargetUserID, &e.FriendshipStatus, &e.SubscriptionTime,
		&e.Peer.ID, &e.Peer.Name, &e.Peer.Email, &e.Peer.AllowSubscriptions, &e.Peer.RegisteredAt)
	return e, err
}

func findEdge(ctx context.Context, q querier, subscriberID, targetID int64) (domain.Subscription, bool, error) {
	edge, err := scanEdge(q.QueryRow(ctx,
		`SELECT `+edgeColumns+` FROM subscriptions s JOIN users p ON p.id = s.target_user_id
		 WHERE s.subscriber_id = $1 AND s.target_user_id = $2`, subscriberID, targetID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Subscription{}, false, nil
	}
	if err != nil {
		return domain.Subscription{}, false, err
	}
	return edge, true, nil
}

func (s *Storage) FindEdge(ctx context.Context, subscriberID, targetID int64) (domain.Subscription, bool, error) {
	return findEdge(ctx, s.pool, subscriberID, targetID)
}

func (s *Storage) ExistsEdge(ctx context.Context, subscriberID, targetID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE subscriber_id = $1 AND target_user_id = $2)`,
		subscriberID, targetID).Scan(&exists)
	return exists, err
}

// lockPair serializes writers of the two edges between a and b across
// processes.
func lockPair(ctx context.Context, tx pgx.Tx, a, b int64) error {
	_, err := tx.Exec(ctx, `SELECT id FROM users WHERE id IN ($1, $2) ORDER BY id FOR UPDATE`, a, b)
	return err
}

func (s *Storage) SaveEdges(ctx context.Context, edges ...domain.Subscription) ([]domain.Subscription, error) {
	return inTx(ctx, s.pool, func(tx pgx.Tx) ([]domain.Subscription, error) {
		if len(edges) > 0 {
			if err := lockPair(ctx, tx, edges[0].SubscriberID, edges[0].TargetUserID); err != nil {
				return nil, err
			}
		}
		saved := make([]domain.Subscription, 0, len(edges))
		for _, edge := range edges {
			if edge.ID == 0 {
				if edge.SubscriptionTime.IsZero() {
					edge.SubscriptionTime = time.Now()
				}
				_, reverse, err := findEdge(ctx, tx, edge.TargetUserID, edge.SubscriberID)
				if err != nil {
					return nil, err
				}
				if reverse != (edge.FriendshipStatus == domain.FriendshipMutual) {
					return nil, domain.ErrConcurrentUpdate
				}
				_, err = tx.Exec(ctx,
					`INSERT INTO subscriptions (subscriber_id, target_user_id, friendship_status, created_at) VALUES ($1, $2, $3, $4)`,
					edge.SubscriberID, edge.TargetUserID, edge.FriendshipStatus, edge.SubscriptionTime)
				if isUniqueViolation(err) {
					return nil, domain.ErrAlreadySubscribed
				}
				if err != nil {
					return nil, err
				}
			} else {
				tag, err := tx.Exec(ctx, `UPDATE subscriptions SET friendship_status = $2 WHERE id = $1`, edge.ID, edge.FriendshipStatus)
				if err != nil {
					return nil, err
				}
				if tag.RowsAffected() == 0 {
					return nil, domain.ErrNotFound
				}
			}
			stored, ok, err := findEdge(ctx, tx, edge.SubscriberID, edge.TargetUserID)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, domain.ErrNotFound
			}
			saved = append(saved, stored)
		}
		return saved, nil
	})
}

func (s *Storage) DeleteEdge(ctx context.Context, edge domain.Subscription, repaired *domain.Subscription) error {
	return inTxSimple(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockPair(ctx, tx, edge.SubscriberID, edge.TargetUserID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM subscriptions WHERE subscriber_id = $1 AND target_user_id = $2`,
			edge.SubscriberID, edge.TargetUserID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotSubscribed
		}
		if repaired == nil {
			reverse, ok, err := findEdge(ctx, tx, edge.TargetUserID, edge.SubscriberID)
			if err != nil {
				return err
			}
			if ok && reverse.FriendshipStatus == domain.FriendshipMutual {
				return domain.ErrConcurrentUpdate
			}
			return nil
		}
		tag, err = tx.Exec(ctx, `UPDATE subscriptions SET friendship_status = $3 WHERE subscriber_id = $1 AND target_user_id = $2`,
			repaired.SubscriberID, repaired.TargetUserID, repaired.FriendshipStatus)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrConcurrentUpdate
		}
		return nil
	})
}

var sortColumns = map[domain.SortField]string{
	domain.SortByPeerName:         "LOWER(p.name)",
	domain.SortBySubscriptionTime: "s.created_at",
	domain.SortByFriendshipStatus: "s.friendship_status",
}

func (s *Storage) QueryEdges(ctx context.Context, direction domain.Direction, filter domain.SubscriptionFilter) ([]domain.Subscription, error) {
	owner, other := "s.subscriber_id", "s.target_user_id"
	if direction == domain.Incoming {
		owner, other = other, owner
	}
	args := []any{filter.UserID}
	where := []string{owner + " = $1"}
	if filter.PeerName != "" {
		args = append(args, "%"+strings.ToLower(normalize.Name(filter.PeerName))+"%")
		where = append(where, "LOWER(p.name) LIKE $"+strconv.Itoa(len(args)))
	}
	if filter.FriendshipStatus != "" {
		args = append(args, filter.FriendshipStatus)
		where = append(where, "s.friendship_status = $"+strconv.Itoa(len(args)))
	}
	if filter.SubscriptionTime != nil {
		from := filter.SubscriptionTime.Truncate(time.Second)
		args = append(args, from, from.Add(time.Second))
		where = append(where,
			"s.created_at >= $"+strconv.Itoa(len(args)-1),
			"s.created_at < $"+strconv.Itoa(len(args)))
	}
	sortBy, ok := sortColumns[filter.SortField]
	if !ok {
		return nil, domain.ErrInvalidSortField
	}
	order := "ASC"
	if filter.SortDirection == domain.Desc {
		order = "DESC"
	}
	args = append(args, filter.Size, filter.From)
	query := `SELECT ` + edgeColumns + ` FROM subscriptions s JOIN users p ON p.id = ` + other +
		` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY ` + sortBy + ` ` + order + `, s.id ASC` +
		` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Subscription, error) {
		return scanEdge(row)
	})
}

func (s *Storage) CountEdges(ctx context.Context, userID int64, direction domain.Direction) (int64, error) {
	column := "subscriber_id"
	if direction == domain.Incoming {
		column = "target_user_id"
	}
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM subscriptions WHERE `+column+` = $1`, userID).Scan(&n)
	return n, err
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func inTx[T any](ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) (T, error)) (T, error) {
	var zero T
	tx, err := pool.Begin(ctx)
	if err != nil {
		return zero, err
	}
	value, err := fn(tx)
	if err != nil {
		return zero, errors.Join(err, tx.Rollback(ctx))
	}
	return value, tx.Commit(ctx)
}

func inTxSimple(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	_, err := inTx(ctx, pool, func(tx pgx.Tx) (struct{}, error) { return struct{}{}, fn(tx) })
	return err
}
