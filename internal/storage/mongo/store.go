// Package mongo provides a MongoDB-backed implementation of the storage.Store interface.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Collection name constants.
const (
	colUsers       = "users"
	colGroups      = "groups"
	colFriends     = "friends"
	colExpenses    = "expenses"
	colSettlements = "settlements"
	colBalances    = "balances"
	colReminders   = "reminders"
	colApplied     = "applied_updates"
)

// maxBalanceAttempts bounds the optimistic retry loop in UpdateBalance.
const maxBalanceAttempts = 5

// compile-time interface check
var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to MongoDB, verifies connectivity and creates indexes.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	s := &Store{client: client, db: client.Database(database)}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	if err := s.Migrate(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// Migrate creates the indexes the queries rely on.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colGroups: {
			{Keys: bson.D{{Key: "members", Value: 1}}},
		},
		colFriends: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "added_at", Value: 1}}},
		},
		colExpenses: {
			{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "date", Value: 1}}},
			{Keys: bson.D{{Key: "payer_id", Value: 1}}},
			{Keys: bson.D{{Key: "split.user_id", Value: 1}}},
		},
		colSettlements: {
			{Keys: bson.D{{Key: "group_id", Value: 1}}},
			{Keys: bson.D{{Key: "from_user_id", Value: 1}, {Key: "to_user_id", Value: 1}}},
			{Keys: bson.D{{Key: "to_user_id", Value: 1}}},
		},
		colReminders: {
			{Keys: bson.D{{Key: "to_user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}

	for col, idx := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func now() int64 { return time.Now().Unix() }

func (s *Store) col(name string) *mongo.Collection { return s.db.Collection(name) }

// ==================== User Store ====================

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.col(colUsers).InsertOne(ctx, toUserModel(user))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("user %s: %w", user.Email, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("mongo: create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var m userModel
	err := s.col(colUsers).FindOne(ctx, filter).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: get user: %w", err)
	}
	return fromUserModel(&m), nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	var docs []userModel
	if err := s.findAll(ctx, colUsers, bson.M{"_id": bson.M{"$in": ids}}, nil, &docs); err != nil {
		return nil, fmt.Errorf("mongo: get users: %w", err)
	}
	for i := range docs {
		users[docs[i].ID] = fromUserModel(&docs[i])
	}
	return users, nil
}

// ==================== Group Store ====================

func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = now()
	}
	group.Members = models.UniqueIDs(group.Members)

	_, err := s.col(colGroups).InsertOne(ctx, toGroupModel(group))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("group %s: %w", group.ID, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("mongo: create group: %w", err)
	}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	var m groupModel
	err := s.col(colGroups).FindOne(ctx, bson.M{"_id": groupID}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: get group: %w", err)
	}
	return fromGroupModel(&m), nil
}

func (s *Store) ListGroupsByMember(ctx context.Context, userID string) ([]*models.Group, error) {
	var docs []groupModel
	sort := bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
	if err := s.findAll(ctx, colGroups, bson.M{"members": userID}, sort, &docs); err != nil {
		return nil, fmt.Errorf("mongo: list groups: %w", err)
	}

	groups := make([]*models.Group, len(docs))
	for i := range docs {
		groups[i] = fromGroupModel(&docs[i])
	}
	return groups, nil
}

func (s *Store) AddGroupMembers(ctx context.Context, groupID string, userIDs []string) error {
	// $addToSet with $each appends unseen IDs in order.
	res, err := s.col(colGroups).UpdateOne(ctx,
		bson.M{"_id": groupID},
		bson.M{"$addToSet": bson.M{"members": bson.M{"$each": models.UniqueIDs(userIDs)}}},
	)
	if err != nil {
		return fmt.Errorf("mongo: add group members: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	return nil
}

// ==================== Friend Store ====================

func (s *Store) AddFriend(ctx context.Context, userID, friendID string) error {
	t := now()
	for _, pair := range [][2]string{{userID, friendID}, {friendID, userID}} {
		doc := friendModel{ID: pair[0] + ":" + pair[1], UserID: pair[0], FriendID: pair[1], AddedAt: t}
		_, err := s.col(colFriends).UpdateOne(ctx,
			bson.M{"_id": doc.ID},
			bson.M{"$setOnInsert": doc},
			options.UpdateOne().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("mongo: add friend: %w", err)
		}
	}
	return nil
}

func (s *Store) ListFriends(ctx context.Context, userID string) ([]string, error) {
	var docs []friendModel
	sort := bson.D{{Key: "added_at", Value: 1}, {Key: "friend_id", Value: 1}}
	if err := s.findAll(ctx, colFriends, bson.M{"user_id": userID}, sort, &docs); err != nil {
		return nil, fmt.Errorf("mongo: list friends: %w", err)
	}

	friends := make([]string, len(docs))
	for i, d := range docs {
		friends[i] = d.FriendID
	}
	return friends, nil
}

// ==================== Ledger Store ====================

func (s *Store) PutExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = now()
	}

	_, err := s.col(colExpenses).InsertOne(ctx, toExpenseModel(expense))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("expense %s: %w", expense.ID, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("mongo: put expense: %w", err)
	}
	return nil
}

func (s *Store) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	var m expenseModel
	err := s.col(colExpenses).FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: get expense: %w", err)
	}
	expense := fromExpenseModel(&m)
	return &expense, nil
}

func (s *Store) GetExpenses(ctx context.Context, scope storage.Scope) ([]models.Expense, error) {
	filter, err := expenseFilter(scope)
	if err != nil {
		return nil, err
	}

	var docs []expenseModel
	sort := bson.D{{Key: "date", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}
	if err := s.findAll(ctx, colExpenses, filter, sort, &docs); err != nil {
		return nil, fmt.Errorf("mongo: get expenses: %w", err)
	}

	expenses := make([]models.Expense, len(docs))
	for i := range docs {
		expenses[i] = fromExpenseModel(&docs[i])
	}
	return expenses, nil
}

func (s *Store) PutSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = now()
	}
	if settlement.Status == "" {
		settlement.Status = models.SettlementCompleted
	}

	_, err := s.col(colSettlements).InsertOne(ctx, toSettlementModel(settlement))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("settlement %s: %w", settlement.ID, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("mongo: put settlement: %w", err)
	}
	return nil
}

func (s *Store) GetSettlement(ctx context.Context, id string) (*models.Settlement, error) {
	var m settlementModel
	err := s.col(colSettlements).FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("settlement %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: get settlement: %w", err)
	}
	settlement := fromSettlementModel(&m)
	return &settlement, nil
}

func (s *Store) GetSettlements(ctx context.Context, scope storage.Scope) ([]models.Settlement, error) {
	filter, err := settlementFilter(scope)
	if err != nil {
		return nil, err
	}

	var docs []settlementModel
	sort := bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}
	if err := s.findAll(ctx, colSettlements, filter, sort, &docs); err != nil {
		return nil, fmt.Errorf("mongo: get settlements: %w", err)
	}

	settlements := make([]models.Settlement, len(docs))
	for i := range docs {
		settlements[i] = fromSettlementModel(&docs[i])
	}
	return settlements, nil
}

func (s *Store) GetBalance(ctx context.Context, userA, userB string) (*models.Balance, error) {
	var m balanceModel
	err := s.col(colBalances).FindOne(ctx, bson.M{"_id": balanceID(userA, userB)}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: get balance: %w", err)
	}
	return fromBalanceModel(&m), nil
}

// UpdateBalance runs a keyed update in a transaction that also inserts the
// key document, so the key and the balance commit together. Transactions
// need a replica set; an unkeyed update does not.
func (s *Store) UpdateBalance(ctx context.Context, key, userA, userB string, fn func(*models.Balance) error) (*models.Balance, error) {
	if key == "" {
		return s.updateBalance(ctx, userA, userB, fn)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	out, err := sess.WithTransaction(ctx, func(txCtx context.Context) (any, error) {
		doc := appliedModel{ID: key, BalanceID: balanceID(userA, userB), AppliedAt: now()}
		_, err := s.col(colApplied).InsertOne(txCtx, doc)
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("update %s: %w", key, storage.ErrAlreadyApplied)
		}
		if err != nil {
			return nil, fmt.Errorf("mongo: record update key: %w", err)
		}
		return s.updateBalance(txCtx, userA, userB, fn)
	})
	if err != nil {
		return nil, err
	}
	return out.(*models.Balance), nil
}

// updateBalance performs an optimistic read-modify-write keyed on the
// balance version. A lost race is retried; storage.ErrConflict is returned
// once the attempts run out.
func (s *Store) updateBalance(ctx context.Context, userA, userB string, fn func(*models.Balance) error) (*models.Balance, error) {
	lo, hi := models.OrderedPair(userA, userB)

	for attempt := 0; attempt < maxBalanceAttempts; attempt++ {
		current, err := s.GetBalance(ctx, lo, hi)
		isNew := errors.Is(err, storage.ErrNotFound)
		if isNew {
			current = models.NewBalance(lo, hi)
		} else if err != nil {
			return nil, err
		}

		prev := current.Version
		if err := fn(current); err != nil {
			return nil, err
		}
		current.UserA, current.UserB = lo, hi
		current.Version = prev + 1
		current.UpdatedAt = now()
		m := toBalanceModel(current)

		if isNew {
			_, err := s.col(colBalances).InsertOne(ctx, m)
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("mongo: insert balance: %w", err)
			}
			return current, nil
		}

		res, err := s.col(colBalances).ReplaceOne(ctx, bson.M{"_id": m.ID, "version": prev}, m)
		if err != nil {
			return nil, fmt.Errorf("mongo: update balance: %w", err)
		}
		if res.MatchedCount == 1 {
			return current, nil
		}
	}

	return nil, fmt.Errorf("balance %s/%s: %w", lo, hi, storage.ErrConflict)
}

// ==================== Reminder Store ====================

func (s *Store) PutReminder(ctx context.Context, reminder *models.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.New().String()
	}
	if reminder.CreatedAt == 0 {
		reminder.CreatedAt = now()
	}
	if _, err := s.col(colReminders).InsertOne(ctx, toReminderModel(reminder)); err != nil {
		return fmt.Errorf("mongo: put reminder: %w", err)
	}
	return nil
}

func (s *Store) ListReminders(ctx context.Context, toUserID string) ([]*models.Reminder, error) {
	var docs []reminderModel
	sort := bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
	if err := s.findAll(ctx, colReminders, bson.M{"to_user_id": toUserID}, sort, &docs); err != nil {
		return nil, fmt.Errorf("mongo: list reminders: %w", err)
	}

	reminders := make([]*models.Reminder, len(docs))
	for i := range docs {
		reminders[i] = fromReminderModel(&docs[i])
	}
	return reminders, nil
}

func (s *Store) MarkReminderRead(ctx context.Context, reminderID string) error {
	res, err := s.col(colReminders).UpdateOne(ctx,
		bson.M{"_id": reminderID},
		bson.M{"$set": bson.M{"status": models.ReminderRead, "read_at": now()}},
	)
	if err != nil {
		return fmt.Errorf("mongo: mark reminder read: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("reminder %s: %w", reminderID, storage.ErrNotFound)
	}
	return nil
}

// ==================== Helpers ====================

func (s *Store) findAll(ctx context.Context, col string, filter any, sort bson.D, out any) error {
	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}
	cur, err := s.col(col).Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}
