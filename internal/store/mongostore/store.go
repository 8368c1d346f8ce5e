// Package mongostore implements the store interfaces on MongoDB. Documents
// arrive already sealed by the codec; this package only moves ciphertext and
// plaintext metadata in and out of collections, and enforces the natural-key
// uniqueness that makes ingestion idempotent.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nexpass/nexsync/internal/store"
)

const (
	collTransactions = "transactions"
	collAccounts     = "accounts"
	collBalances     = "balances"
	collConnections  = "connections"
)

// Connect opens a client and verifies the deployment is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connecting: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongostore: ping: %w: %v", store.ErrStorageUnavailable, err)
	}
	return client, nil
}

// Store is a MongoDB-backed store.Store.
type Store struct {
	db *mongo.Database
}

// New wraps a database handle.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) Transactions() store.TransactionStore {
	return &transactionStore{coll: s.db.Collection(collTransactions)}
}

func (s *Store) Accounts() store.AccountStore {
	return &accountStore{coll: s.db.Collection(collAccounts)}
}

func (s *Store) Balances() store.BalanceStore {
	return &balanceStore{coll: s.db.Collection(collBalances)}
}

func (s *Store) Connections() store.ConnectionStore {
	return &connectionStore{coll: s.db.Collection(collConnections)}
}

// EnsureIndexes creates every index ingestion and querying rely on. The
// unique keys are all over ciphertext columns, which deterministic encryption
// keeps stable, so uniqueness holds without the server ever seeing plaintext.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		collTransactions: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "transactionId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "bookingDate", Value: -1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "accountId", Value: 1}, {Key: "bookingDate", Value: -1}}},
		},
		collAccounts: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "accountId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "connectionId", Value: 1}}},
		},
		collBalances: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "accountId", Value: 1}, {Key: "balanceType", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		collConnections: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "connectionId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
	}

	for coll, models := range specs {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return wrap("EnsureIndexes "+coll, err)
		}
	}
	return nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("mongostore: %s: %w: %v", op, store.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("mongostore: %s: %w", op, err)
}

func setOptional(set, unset bson.M, field string, value *string) {
	if value != nil {
		set[field] = *value
	} else {
		unset[field] = ""
	}
}

func buildUpdate(set, setOnInsert, unset bson.M) bson.M {
	update := bson.M{"$set": set, "$setOnInsert": setOnInsert}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

// upsertByKey runs the shared upsert pattern: match on the natural key,
// refresh provider fields, create the document on first sight. A duplicate-
// key error means a concurrent writer inserted between the match and the
// upsert; the retry then takes the update path.
func upsertByKey(ctx context.Context, coll *mongo.Collection, filter, update bson.M) (store.UpsertResult, error) {
	res, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		res, err = coll.UpdateOne(ctx, filter, update)
	}
	if err != nil {
		return store.UpsertResult{}, err
	}
	return store.UpsertResult{Inserted: res.UpsertedCount > 0}, nil
}

type transactionStore struct {
	coll *mongo.Collection
}

func (s *transactionStore) Upsert(ctx context.Context, doc *store.TransactionDoc) (store.UpsertResult, error) {
	filter := bson.M{"userId": doc.UserID, "transactionId": doc.TransactionID}

	set := bson.M{
		"bookingDate":    doc.BookingDate,
		"bookingMonth":   doc.BookingMonth,
		"bookingYear":    doc.BookingYear,
		"bookingWeekday": doc.BookingWeekday,
		"status":         doc.Status,
		"pending":        doc.Pending,
		"paymentChannel": doc.PaymentChannel,
		"accountId":      doc.AccountID,
		"amount":         doc.Amount,
		"currency":       doc.Currency,
		"raw":            doc.Raw,
		"updatedAt":      doc.UpdatedAt,
	}
	unset := bson.M{}
	setOptional(set, unset, "valueDate", doc.ValueDate)
	setOptional(set, unset, "description", doc.Description)
	setOptional(set, unset, "counterparty", doc.Counterparty)
	setOptional(set, unset, "merchantName", doc.MerchantName)
	setOptional(set, unset, "location", doc.Location)
	setOptional(set, unset, "providerCategory", doc.ProviderCategory)

	// Category and Exclude belong to the user after first write; a re-sync
	// only seeds them.
	setOnInsert := bson.M{
		"_id":       doc.ID,
		"category":  doc.Category,
		"exclude":   doc.Exclude,
		"createdAt": doc.CreatedAt,
	}

	res, err := upsertByKey(ctx, s.coll, filter, buildUpdate(set, setOnInsert, unset))
	if err != nil {
		return store.UpsertResult{}, wrap("transaction upsert", err)
	}
	return res, nil
}

func (s *transactionStore) FindByKey(ctx context.Context, userID, transactionID string) (*store.TransactionDoc, error) {
	var doc store.TransactionDoc
	err := s.coll.FindOne(ctx, bson.M{"userId": userID, "transactionId": transactionID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, wrap("transaction find", err)
	}
	return &doc, nil
}

func (s *transactionStore) UpdateUserFields(ctx context.Context, userID, docID string, upd store.TransactionFieldUpdate) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.Exclude != nil {
		set["exclude"] = *upd.Exclude
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Counterparty != nil {
		set["counterparty"] = *upd.Counterparty
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": docID, "userId": userID}, bson.M{"$set": set})
	if err != nil {
		return wrap("transaction user update", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *transactionStore) List(ctx context.Context, q store.TransactionQuery) ([]*store.TransactionDoc, error) {
	filter := bson.M{"userId": q.UserID}
	if q.AccountID != "" {
		filter["accountId"] = q.AccountID
	}
	if q.Category != "" {
		filter["category"] = q.Category
	}
	if q.Month != "" {
		filter["bookingMonth"] = q.Month
	}
	if q.DateFrom != "" || q.DateTo != "" {
		dates := bson.M{}
		if q.DateFrom != "" {
			dates["$gte"] = q.DateFrom
		}
		if q.DateTo != "" {
			dates["$lte"] = q.DateTo
		}
		filter["bookingDate"] = dates
	}
	if !q.IncludeExcluded {
		filter["exclude"] = false
	}

	opts := options.Find().SetSort(bson.D{{Key: "bookingDate", Value: -1}, {Key: "_id", Value: 1}})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrap("transaction list", err)
	}
	defer cur.Close(ctx)

	var out []*store.TransactionDoc
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrap("transaction list decode", err)
	}
	return out, nil
}

func (s *transactionStore) LastBookingDate(ctx context.Context, userID, accountID string) (string, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "bookingDate", Value: -1}}).
		SetProjection(bson.M{"bookingDate": 1})

	var doc struct {
		BookingDate string `bson:"bookingDate"`
	}
	err := s.coll.FindOne(ctx, bson.M{"userId": userID, "accountId": accountID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", wrap("transaction last booking date", err)
	}
	return doc.BookingDate, nil
}

func (s *transactionStore) DeleteByAccount(ctx context.Context, userID, accountID string) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"userId": userID, "accountId": accountID})
	if err != nil {
		return 0, wrap("transaction delete by account", err)
	}
	return res.DeletedCount, nil
}

type accountStore struct {
	coll *mongo.Collection
}

func (s *accountStore) Upsert(ctx context.Context, doc *store.AccountDoc) (store.UpsertResult, error) {
	filter := bson.M{"userId": doc.UserID, "accountId": doc.AccountID}

	set := bson.M{
		"institutionId": doc.InstitutionID,
		"currency":      doc.Currency,
		"status":        doc.Status,
		"connectionId":  doc.ConnectionID,
		"raw":           doc.Raw,
		"updatedAt":     doc.UpdatedAt,
	}
	unset := bson.M{}
	setOptional(set, unset, "name", doc.Name)
	setOptional(set, unset, "iban", doc.IBAN)

	setOnInsert := bson.M{"_id": doc.ID, "createdAt": doc.CreatedAt}

	res, err := upsertByKey(ctx, s.coll, filter, buildUpdate(set, setOnInsert, unset))
	if err != nil {
		return store.UpsertResult{}, wrap("account upsert", err)
	}
	return res, nil
}

func (s *accountStore) ListByUser(ctx context.Context, userID string) ([]*store.AccountDoc, error) {
	return s.list(ctx, bson.M{"userId": userID})
}

func (s *accountStore) ListByConnection(ctx context.Context, userID, connectionID string) ([]*store.AccountDoc, error) {
	return s.list(ctx, bson.M{"userId": userID, "connectionId": connectionID})
}

func (s *accountStore) list(ctx context.Context, filter bson.M) ([]*store.AccountDoc, error) {
	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, wrap("account list", err)
	}
	defer cur.Close(ctx)

	var out []*store.AccountDoc
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrap("account list decode", err)
	}
	return out, nil
}

func (s *accountStore) Delete(ctx context.Context, userID, accountID string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"userId": userID, "accountId": accountID})
	if err != nil {
		return wrap("account delete", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

type balanceStore struct {
	coll *mongo.Collection
}

func (s *balanceStore) Upsert(ctx context.Context, doc *store.BalanceDoc) (store.UpsertResult, error) {
	filter := bson.M{"userId": doc.UserID, "accountId": doc.AccountID, "balanceType": doc.BalanceType}

	set := bson.M{
		"referenceDate": doc.ReferenceDate,
		"amount":        doc.Amount,
		"currency":      doc.Currency,
		"updatedAt":     doc.UpdatedAt,
	}
	setOnInsert := bson.M{"_id": doc.ID, "createdAt": doc.CreatedAt}

	res, err := upsertByKey(ctx, s.coll, filter, buildUpdate(set, setOnInsert, nil))
	if err != nil {
		return store.UpsertResult{}, wrap("balance upsert", err)
	}
	return res, nil
}

func (s *balanceStore) ListByAccount(ctx context.Context, userID, accountID string) ([]*store.BalanceDoc, error) {
	cur, err := s.coll.Find(ctx, bson.M{"userId": userID, "accountId": accountID})
	if err != nil {
		return nil, wrap("balance list", err)
	}
	defer cur.Close(ctx)

	var out []*store.BalanceDoc
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrap("balance list decode", err)
	}
	return out, nil
}

func (s *balanceStore) DeleteByAccount(ctx context.Context, userID, accountID string) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"userId": userID, "accountId": accountID})
	if err != nil {
		return 0, wrap("balance delete by account", err)
	}
	return res.DeletedCount, nil
}

type connectionStore struct {
	coll *mongo.Collection
}

func (s *connectionStore) Upsert(ctx context.Context, doc *store.ConnectionDoc) (store.UpsertResult, error) {
	filter := bson.M{"userId": doc.UserID, "connectionId": doc.ConnectionID}

	set := bson.M{
		"institutionId": doc.InstitutionID,
		"status":        doc.Status,
		"accessToken":   doc.AccessToken,
		"raw":           doc.Raw,
		"updatedAt":     doc.UpdatedAt,
	}
	setOnInsert := bson.M{"_id": doc.ID, "createdAt": doc.CreatedAt}

	res, err := upsertByKey(ctx, s.coll, filter, buildUpdate(set, setOnInsert, nil))
	if err != nil {
		return store.UpsertResult{}, wrap("connection upsert", err)
	}
	return res, nil
}

func (s *connectionStore) ListByUser(ctx context.Context, userID string) ([]*store.ConnectionDoc, error) {
	return s.list(ctx, bson.M{"userId": userID})
}

func (s *connectionStore) ListByStatus(ctx context.Context, status string) ([]*store.ConnectionDoc, error) {
	return s.list(ctx, bson.M{"status": status})
}

func (s *connectionStore) list(ctx context.Context, filter bson.M) ([]*store.ConnectionDoc, error) {
	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, wrap("connection list", err)
	}
	defer cur.Close(ctx)

	var out []*store.ConnectionDoc
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrap("connection list decode", err)
	}
	return out, nil
}

func (s *connectionStore) Delete(ctx context.Context, userID, connectionID string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"userId": userID, "connectionId": connectionID})
	if err != nil {
		return wrap("connection delete", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
