package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-jet/jet/v2/qrm"
	"github.com/go-jet/jet/v2/sqlite"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/goserg/eventhub/gen/model"
	"github.com/goserg/eventhub/gen/table"
	"github.com/goserg/eventhub/internal/domain"
	"github.com/goserg/eventhub/internal/migrate"
	"github.com/goserg/eventhub/internal/normalize"
	"github.com/goserg/eventhub/internal/storage"
)

type Storage struct {
	db  *sql.DB
	log *logrus.Entry
}

var _ storage.Storage = (*Storage)(nil)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func New(l *logrus.Logger, fileName string) (*Storage, error) {
	log := l.WithFields(map[string]interface{}{
		"from": "sqlite-storage",
	})
	db, err := sql.Open("sqlite3", buildSource(fileName))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	err = migrate.UpSQLite(db)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	err = db.Ping()
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	log.WithField("file", fileName).Info("storage connected")
	return &Storage{
		db:  db,
		log: log,
	}, nil
}

func buildSource(fileName string) string {
	return "file:" + fileName + "?cache=shared"
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) GetUser(ctx context.Context, id int64) (domain.User, error) {
	return getUser(ctx, s.db, id)
}

func getUser(ctx context.Context, db dbtx, id int64) (domain.User, error) {
	var user model.Users
	err := table.Users.
		SELECT(table.Users.AllColumns).
		FROM(table.Users).
		WHERE(table.Users.ID.EQ(sqlite.Int(id))).
		QueryContext(ctx, db, &user)
	if err != nil {
		return domain.User{}, notFound(err)
	}
	return convertUserToDomain(user), nil
}

func (s *Storage) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	if user.RegisteredAt.IsZero() {
		user.RegisteredAt = time.Now()
	}
	columns := table.Users.MutableColumns
	if user.ID != 0 {
		columns = table.Users.AllColumns
	}
	res, err := table.Users.
		INSERT(columns).
		MODEL(convertUserFromDomain(user)).
		ExecContext(ctx, s.db)
	if err != nil {
		return domain.User{}, err
	}
	if user.ID == 0 {
		user.ID, err = res.LastInsertId()
		if err != nil {
			return domain.User{}, err
		}
	}
	return user, nil
}

func (s *Storage) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	return getEvent(ctx, s.db, id)
}

func getEvent(ctx context.Context, db dbtx, id int64) (domain.Event, error) {
	var event model.Events
	err := table.Events.
		SELECT(table.Events.AllColumns).
		FROM(table.Events).
		WHERE(table.Events.ID.EQ(sqlite.Int(id))).
		QueryContext(ctx, db, &event)
	if err != nil {
		return domain.Event{}, notFound(err)
	}
	return convertEventToDomain(event), nil
}

func (s *Storage) CreateEvent(ctx context.Context, event domain.Event) (domain.Event, error) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	columns := table.Events.MutableColumns
	if event.ID != 0 {
		columns = table.Events.AllColumns
	}
	res, err := table.Events.
		INSERT(columns).
		MODEL(convertEventFromDomain(event)).
		ExecContext(ctx, s.db)
	if err != nil {
		return domain.Event{}, err
	}
	if event.ID == 0 {
		event.ID, err = res.LastInsertId()
		if err != nil {
			return domain.Event{}, err
		}
	}
	return event, nil
}

func (s *Storage) GetRequest(ctx context.Context, id int64) (domain.ParticipationRequest, error) {
	var request model.Requests
	err := table.Requests.
		SELECT(table.Requests.AllColumns).
		FROM(table.Requests).
		WHERE(table.Requests.ID.EQ(sqlite.Int(id))).
		QueryContext(ctx, s.db, &request)
	if err != nil {
		return domain.ParticipationRequest{}, notFound(err)
	}
	return convertRequestToDomain(request), nil
}

func (s *Storage) FindRequestsByIDs(ctx context.Context, ids []int64) ([]domain.ParticipationRequest, error) {
	if len(ids) == 0 {
		return []domain.ParticipationRequest{}, nil
	}
	in := make([]sqlite.Expression, 0, len(ids))
	for _, id := range ids {
		in = append(in, sqlite.Int(id))
	}
	return s.listRequests(ctx, table.Requests.ID.IN(in...))
}

func (s *Storage) ListRequestsByEvent(ctx context.Context, eventID int64) ([]domain.ParticipationRequest, error) {
	return s.listRequests(ctx, table.Requests.EventID.EQ(sqlite.Int(eventID)))
}

func (s *Storage) ListRequestsByRequester(ctx context.Context, requesterID int64) ([]domain.ParticipationRequest, error) {
	return s.listRequests(ctx, table.Requests.RequesterID.EQ(sqlite.Int(requesterID)))
}

func (s *Storage) listRequests(ctx context.Context, where sqlite.BoolExpression) ([]domain.ParticipationRequest, error) {
	var requests []model.Requests
	err := table.Requests.
		SELECT(table.Requests.AllColumns).
		FROM(table.Requests).
		WHERE(where).
		ORDER_BY(table.Requests.ID.ASC()).
		QueryContext(ctx, s.db, &requests)
	if err != nil {
		return nil, err
	}
	return convertRequestsToDomain(requests), nil
}

func (s *Storage) CreateRequest(ctx context.Context, request domain.ParticipationRequest, event domain.Event, expectedConfirmed int) (domain.ParticipationRequest, error) {
	return inTx(ctx, s.db, func(tx *sql.Tx) (domain.ParticipationRequest, error) {
		if err := swapCounter(ctx, tx, event, expectedConfirmed); err != nil {
			return domain.ParticipationRequest{}, err
		}
		res, err := table.Requests.
			INSERT(table.Requests.MutableColumns).
			MODEL(convertRequestFromDomain(request)).
			ExecContext(ctx, tx)
		if err != nil {
			return domain.ParticipationRequest{}, err
		}
		request.ID, err = res.LastInsertId()
		if err != nil {
			return domain.ParticipationRequest{}, err
		}
		return request, nil
	})
}

func (s *Storage) SaveAdmission(ctx context.Context, event domain.Event, expectedConfirmed int, requests []domain.ParticipationRequest) error {
	return inTxSimple(ctx, s.db, func(tx *sql.Tx) error {
		if err := swapCounter(ctx, tx, event, expectedConfirmed); err != nil {
			return err
		}
		for _, r := range requests {
			res, err := table.Requests.
				UPDATE(table.Requests.Status).
				SET(sqlite.String(string(r.Status))).
				WHERE(table.Requests.ID.EQ(sqlite.Int(r.ID)).
					AND(table.Requests.Status.EQ(sqlite.String(string(domain.RequestPending))))).
				ExecContext(ctx, tx)
			if err := expectOne(res, err, domain.ErrConcurrentUpdate); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Storage) SaveCancellation(ctx context.Context, request domain.ParticipationRequest, event domain.Event, expectedConfirmed int) error {
	return inTxSimple(ctx, s.db, func(tx *sql.Tx) error {
		if err := swapCounter(ctx, tx, event, expectedConfirmed); err != nil {
			return err
		}
		res, err := table.Requests.
			UPDATE(table.Requests.Status).
			SET(sqlite.String(string(request.Status))).
			WHERE(table.Requests.ID.EQ(sqlite.Int(request.ID)).
				AND(table.Requests.Status.NOT_EQ(sqlite.String(string(domain.RequestCanceled))))).
			ExecContext(ctx, tx)
		return expectOne(res, err, domain.ErrConcurrentUpdate)
	})
}

// swapCounter stores event.ConfirmedRequests only if the row still holds expected.
func swapCounter(ctx context.Context, tx *sql.Tx, event domain.Event, expected int) error {
	res, err := table.Events.
		UPDATE(table.Events.ConfirmedRequests).
		SET(sqlite.Int(int64(event.ConfirmedRequests))).
		WHERE(table.Events.ID.EQ(sqlite.Int(event.ID)).
			AND(table.Events.ConfirmedRequests.EQ(sqlite.Int(int64(expected))))).
		ExecContext(ctx, tx)
	err = expectOne(res, err, domain.ErrConcurrentUpdate)
	if errors.Is(err, domain.ErrConcurrentUpdate) {
		if _, getErr := getEvent(ctx, tx, event.ID); getErr != nil {
			return getErr
		}
	}
	return err
}

func (s *Storage) FindReaction(ctx context.Context, eventID, userID int64) (domain.Reaction, bool, error) {
	var reaction model.Reactions
	err := table.Reactions.
		SELECT(table.Reactions.AllColumns).
		FROM(table.Reactions).
		WHERE(reactionWhere(eventID, userID)).
		QueryContext(ctx, s.db, &reaction)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return domain.Reaction{}, false, nil
		}
		return domain.Reaction{}, false, err
	}
	return convertReactionToDomain(reaction), true, nil
}

func reactionWhere(eventID, userID int64) sqlite.BoolExpression {
	return table.Reactions.EventID.EQ(sqlite.Int(eventID)).
		AND(table.Reactions.UserID.EQ(sqlite.Int(userID)))
}

func (s *Storage) InsertReaction(ctx context.Context, reaction domain.Reaction) (domain.Reaction, error) {
	return insertReaction(ctx, s.db, reaction)
}

func insertReaction(ctx context.Context, db dbtx, reaction domain.Reaction) (domain.Reaction, error) {
	res, err := table.Reactions.
		INSERT(table.Reactions.MutableColumns).
		MODEL(convertReactionFromDomain(reaction)).
		ExecContext(ctx, db)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Reaction{}, domain.ErrConcurrentUpdate
		}
		return domain.Reaction{}, err
	}
	reaction.ID, err = res.LastInsertId()
	if err != nil {
		return domain.Reaction{}, err
	}
	return reaction, nil
}

func (s *Storage) DeleteReaction(ctx context.Context, eventID, userID int64) error {
	return deleteReaction(ctx, s.db, eventID, userID)
}

func deleteReaction(ctx context.Context, db dbtx, eventID, userID int64) error {
	_, err := table.Reactions.
		DELETE().
		WHERE(reactionWhere(eventID, userID)).
		ExecContext(ctx, db)
	return err
}

func (s *Storage) SwapReaction(ctx context.Context, next domain.Reaction) (domain.Reaction, error) {
	return inTx(ctx, s.db, func(tx *sql.Tx) (domain.Reaction, error) {
		if err := deleteReaction(ctx, tx, next.EventID, next.UserID); err != nil {
			return domain.Reaction{}, err
		}
		return insertReaction(ctx, tx, next)
	})
}

func (s *Storage) CountReactions(ctx context.Context, eventID int64, t domain.ReactionType) (int64, error) {
	stmt := table.Reactions.
		SELECT(sqlite.COUNT(sqlite.STAR)).
		FROM(table.Reactions).
		WHERE(table.Reactions.EventID.EQ(sqlite.Int(eventID)).
			AND(table.Reactions.Type.EQ(sqlite.String(string(t)))))
	return count(ctx, s.db, stmt)
}

// peer is the users table joined as the other side of an edge.
var peer = table.Users.AS("peer")

type edgeRow struct {
	model.Subscriptions
	Peer model.Users `alias:"peer"`
}

func edgeWhere(subscriberID, targetID int64) sqlite.BoolExpression {
	return table.Subscriptions.SubscriberID.EQ(sqlite.Int(subscriberID)).
		AND(table.Subscriptions.TargetUserID.EQ(sqlite.Int(targetID)))
}

func (s *Storage) FindEdge(ctx context.Context, subscriberID, targetID int64) (domain.Subscription, bool, error) {
	return findEdge(ctx, s.db, subscriberID, targetID)
}

func findEdge(ctx context.Context, db dbtx, subscriberID, targetID int64) (domain.Subscription, bool, error) {
	var row edgeRow
	err := table.Subscriptions.
		SELECT(table.Subscriptions.AllColumns, peer.AllColumns).
		FROM(table.Subscriptions.
			INNER_JOIN(peer, peer.ID.EQ(table.Subscriptions.TargetUserID))).
		WHERE(edgeWhere(subscriberID, targetID)).
		QueryContext(ctx, db, &row)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return domain.Subscription{}, false, nil
		}
		return domain.Subscription{}, false, err
	}
	return convertEdgeToDomain(row.Subscriptions, row.Peer), true, nil
}

func (s *Storage) ExistsEdge(ctx context.Context, subscriberID, targetID int64) (bool, error) {
	stmt := table.Subscriptions.
		SELECT(sqlite.COUNT(sqlite.STAR)).
		FROM(table.Subscriptions).
		WHERE(edgeWhere(subscriberID, targetID))
	n, err := count(ctx, s.db, stmt)
	return n > 0, err
}

func (s *Storage) SaveEdges(ctx context.Context, edges ...domain.Subscription) ([]domain.Subscription, error) {
	return inTx(ctx, s.db, func(tx *sql.Tx) ([]domain.Subscription, error) {
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
				_, err = table.Subscriptions.
					INSERT(table.Subscriptions.MutableColumns).
					MODEL(convertEdgeFromDomain(edge)).
					ExecContext(ctx, tx)
				if err != nil {
					if isUniqueViolation(err) {
						return nil, domain.ErrAlreadySubscribed
					}
					return nil, err
				}
			} else {
				res, err := table.Subscriptions.
					UPDATE(table.Subscriptions.FriendshipStatus).
					SET(sqlite.String(string(edge.FriendshipStatus))).
					WHERE(table.Subscriptions.ID.EQ(sqlite.Int(edge.ID))).
					ExecContext(ctx, tx)
				if err := expectOne(res, err, domain.ErrNotFound); err != nil {
					return nil, err
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
	return inTxSimple(ctx, s.db, func(tx *sql.Tx) error {
		res, err := table.Subscriptions.
			DELETE().
			WHERE(edgeWhere(edge.SubscriberID, edge.TargetUserID)).
			ExecContext(ctx, tx)
		if err := expectOne(res, err, domain.ErrNotSubscribed); err != nil {
			return err
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
		res, err = table.Subscriptions.
			UPDATE(table.Subscriptions.FriendshipStatus).
			SET(sqlite.String(string(repaired.FriendshipStatus))).
			WHERE(edgeWhere(repaired.SubscriberID, repaired.TargetUserID)).
			ExecContext(ctx, tx)
		return expectOne(res, err, domain.ErrConcurrentUpdate)
	})
}

func (s *Storage) QueryEdges(ctx context.Context, direction domain.Direction, filter domain.SubscriptionFilter) ([]domain.Subscription, error) {
	owner, other := table.Subscriptions.SubscriberID, table.Subscriptions.TargetUserID
	if direction == domain.Incoming {
		owner, other = other, owner
	}
	where := owner.EQ(sqlite.Int(filter.UserID))
	if filter.PeerName != "" {
		where = where.AND(sqlite.LOWER(peer.Name).LIKE(sqlite.String("%" + strings.ToLower(normalize.Name(filter.PeerName)) + "%")))
	}
	if filter.FriendshipStatus != "" {
		where = where.AND(table.Subscriptions.FriendshipStatus.EQ(sqlite.String(string(filter.FriendshipStatus))))
	}
	if filter.SubscriptionTime != nil {
		t := filter.SubscriptionTime.UTC()
		where = where.AND(sqlite.DATETIME(table.Subscriptions.CreatedAt).
			EQ(sqlite.DateTime(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())))
	}

	var sortBy sqlite.Expression
	switch filter.SortField {
	case domain.SortBySubscriptionTime:
		sortBy = table.Subscriptions.CreatedAt
	case domain.SortByFriendshipStatus:
		sortBy = table.Subscriptions.FriendshipStatus
	default:
		sortBy = sqlite.LOWER(peer.Name)
	}
	orderBy := sortBy.ASC()
	if filter.SortDirection == domain.Desc {
		orderBy = sortBy.DESC()
	}

	var rows []edgeRow
	err := table.Subscriptions.
		SELECT(table.Subscriptions.AllColumns, peer.AllColumns).
		FROM(table.Subscriptions.
			INNER_JOIN(peer, peer.ID.EQ(other))).
		WHERE(where).
		ORDER_BY(orderBy, table.Subscriptions.ID.ASC()).
		LIMIT(int64(filter.Size)).
		OFFSET(int64(filter.From)).
		QueryContext(ctx, s.db, &rows)
	if err != nil {
		return nil, err
	}
	edges := make([]domain.Subscription, 0, len(rows))
	for _, row := range rows {
		edges = append(edges, convertEdgeToDomain(row.Subscriptions, row.Peer))
	}
	return edges, nil
}

func (s *Storage) CountEdges(ctx context.Context, userID int64, direction domain.Direction) (int64, error) {
	owner := table.Subscriptions.SubscriberID
	if direction == domain.Incoming {
		owner = table.Subscriptions.TargetUserID
	}
	stmt := table.Subscriptions.
		SELECT(sqlite.COUNT(sqlite.STAR)).
		FROM(table.Subscriptions).
		WHERE(owner.EQ(sqlite.Int(userID)))
	return count(ctx, s.db, stmt)
}

func count(ctx context.Context, db dbtx, stmt sqlite.Statement) (int64, error) {
	query, args := stmt.Sql()
	var n int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// expectOne turns a statement that touched no rows into errNone.
func expectOne(res sql.Result, err error, errNone error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errNone
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, qrm.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

func inTx[T any](ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) (T, error)) (T, error) {
	var zero T
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return zero, err
	}
	value, err := fn(tx)
	if err != nil {
		return zero, errors.Join(err, tx.Rollback())
	}
	return value, tx.Commit()
}

func inTxSimple(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	_, err := inTx(ctx, db, func(tx *sql.Tx) (struct{}, error) { return struct{}{}, fn(tx) })
	return err
}
