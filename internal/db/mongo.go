package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/caseclarity/backend/internal/models"
)

const (
	casesCollection       = "cases"
	usersCollection       = "users"
	credentialsCollection = "credentials"
	monitorRunsCollection = "monitor_runs"
)

type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	s := &MongoStore{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(casesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "clientInfo.phone", Value: 1}, {Key: "conversation.status", Value: 1}}},
		{Keys: bson.D{{Key: "lawyerDecision.status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{
			Keys: bson.D{{Key: "clientInfo.phone", Value: 1}},
			Options: options.Index().
				SetName("open_case_per_phone").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"conversation.status": models.ConversationOngoing}),
		},
	})
	if err != nil {
		return err
	}
	_, err = s.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.db.Collection(monitorRunsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "checkedAt", Value: -1}},
	})
	return err
}

func (s *MongoStore) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) CreateCase(ctx context.Context, c models.Case) error {
	c.Conversation.Messages = nonNilMessages(c.Conversation.Messages)
	_, err := s.db.Collection(casesCollection).InsertOne(ctx, c)
	if mongo.IsDuplicateKeyError(err) {
		return ErrConflict
	}
	return err
}

func (s *MongoStore) GetCase(ctx context.Context, id string) (models.Case, error) {
	return s.findCase(ctx, bson.M{"_id": id})
}

func (s *MongoStore) findCase(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (models.Case, error) {
	var c models.Case
	err := s.db.Collection(casesCollection).FindOne(ctx, filter, opts...).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Case{}, ErrNotFound
	}
	if err != nil {
		return models.Case{}, err
	}
	c.Conversation.Messages = nonNilMessages(c.Conversation.Messages)
	return c, nil
}

func (s *MongoStore) ListCases(ctx context.Context, f models.CaseFilter) ([]models.Case, error) {
	f = normalizeFilter(f)
	filter := bson.M{}
	if f.Status != "" {
		filter["lawyerDecision.status"] = f.Status
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(f.Limit)).
		SetSkip(int64(f.Offset))

	cur, err := s.db.Collection(casesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Case{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Conversation.Messages = nonNilMessages(out[i].Conversation.Messages)
	}
	return out, nil
}

func (s *MongoStore) CountCasesByStatus(ctx context.Context) (models.StatusCounts, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$lawyerDecision.status"},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := s.db.Collection(casesCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return models.StatusCounts{}, err
	}
	defer cur.Close(ctx)

	var counts models.StatusCounts
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			N      int    `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return models.StatusCounts{}, err
		}
		counts.Add(row.Status, row.N)
	}
	return counts, cur.Err()
}

func (s *MongoStore) FindOpenCaseByPhone(ctx context.Context, phone string) (models.Case, error) {
	return s.findCase(ctx,
		bson.M{"clientInfo.phone": phone, "conversation.status": models.ConversationOngoing},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
}

func (s *MongoStore) updateCase(ctx context.Context, id string, update bson.M) error {
	res, err := s.db.Collection(casesCollection).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) AppendMessages(ctx context.Context, id string, msgs ...models.Message) error {
	return s.updateCase(ctx, id, bson.M{
		"$push": bson.M{"conversation.messages": bson.M{"$each": nonNilMessages(msgs)}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (s *MongoStore) SetConversationStatus(ctx context.Context, id string, status string) error {
	return s.updateCase(ctx, id, bson.M{
		"$set": bson.M{"conversation.status": status, "updatedAt": time.Now().UTC()},
	})
}

func (s *MongoStore) SetAnalysis(ctx context.Context, id string, analysis models.CaseAnalysis) error {
	return s.updateCase(ctx, id, bson.M{
		"$set": bson.M{"aiAnalysis": analysis, "updatedAt": time.Now().UTC()},
	})
}

func (s *MongoStore) DecideCase(ctx context.Context, id string, d models.LawyerDecision) error {
	res, err := s.db.Collection(casesCollection).UpdateOne(ctx,
		bson.M{"_id": id, "lawyerDecision.status": models.DecisionPending},
		bson.M{"$set": bson.M{"lawyerDecision": d, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetCase(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

func (s *MongoStore) CreateUser(ctx context.Context, u models.User) error {
	u.Email = normalizeEmail(u.Email)
	_, err := s.db.Collection(usersCollection).InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return ErrConflict
	}
	return err
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findUser(ctx, bson.M{"email": normalizeEmail(email)})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (models.User, error) {
	var u models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	return u, err
}

func (s *MongoStore) ListUsers(ctx context.Context) ([]models.User, error) {
	cur, err := s.db.Collection(usersCollection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) SaveCredentials(ctx context.Context, c models.JudicialCredentials) error {
	_, err := s.db.Collection(credentialsCollection).ReplaceOne(ctx,
		bson.M{"_id": c.UserID}, c, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) GetCredentials(ctx context.Context, userID string) (models.JudicialCredentials, error) {
	var c models.JudicialCredentials
	err := s.db.Collection(credentialsCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.JudicialCredentials{}, ErrNotFound
	}
	return c, err
}

func (s *MongoStore) ListCredentialOwners(ctx context.Context) ([]string, error) {
	ids, err := s.db.Collection(credentialsCollection).Distinct(ctx, "_id", bson.M{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if id, ok := v.(string); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *MongoStore) SaveMonitorRun(ctx context.Context, r models.MonitorRun) error {
	_, err := s.db.Collection(monitorRunsCollection).InsertOne(ctx, r)
	return err
}

func (s *MongoStore) LatestMonitorRun(ctx context.Context, userID string) (models.MonitorRun, error) {
	filter := bson.M{}
	if userID != "" {
		filter["userId"] = userID
	}
	var r models.MonitorRun
	err := s.db.Collection(monitorRunsCollection).FindOne(ctx, filter,
		options.FindOne().SetSort(bson.D{{Key: "checkedAt", Value: -1}})).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.MonitorRun{}, ErrNotFound
	}
	return r, err
}
