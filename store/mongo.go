package store

import (
	"context"
	"errors"
	"fmt"

	"fieldfusion/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Mongo struct {
	client  *mongo.Client
	users   *mongo.Collection
	reports *mongo.Collection
}

// OpenMongo connects and makes sure the indexes exist.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	db := client.Database(database)
	m := &Mongo{
		client:  client,
		users:   db.Collection("users"),
		reports: db.Collection("reports"),
	}

	// Indexes
	if _, err := m.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "verificationToken", Value: 1}}, Options: options.Index().SetSparse(true)},
	}); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("users indexes: %w", err)
	}
	if _, err := m.reports.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("reports indexes: %w", err)
	}
	return m, nil
}

func (m *Mongo) Close(ctx context.Context) error { return m.client.Disconnect(ctx) }

func (m *Mongo) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = models.NormalizeEmail(u.Email)
	res, err := m.users.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (m *Mongo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

func (m *Mongo) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return m.findUser(ctx, bson.M{"_id": id})
}

func (m *Mongo) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := m.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (m *Mongo) VerifyUser(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var u models.User
	err := m.users.FindOneAndUpdate(ctx,
		bson.M{"verificationToken": token},
		bson.M{"$set": bson.M{"isVerified": true}, "$unset": bson.M{"verificationToken": ""}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (m *Mongo) SaveReport(ctx context.Context, r *models.Report) error {
	res, err := m.reports.InsertOne(ctx, r)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	r.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (m *Mongo) ListReports(ctx context.Context, owner primitive.ObjectID) ([]models.Report, error) {
	cur, err := m.reports.Find(ctx, bson.M{"ownerId": owner},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find reports: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.Report{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}
	return out, nil
}

func (m *Mongo) GetReport(ctx context.Context, owner, id primitive.ObjectID) (*models.Report, error) {
	var r models.Report
	if err := m.reports.FindOne(ctx, bson.M{"_id": id, "ownerId": owner}).Decode(&r); err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (m *Mongo) DeleteReport(ctx context.Context, owner, id primitive.ObjectID) error {
	res, err := m.reports.DeleteOne(ctx, bson.M{"_id": id, "ownerId": owner})
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
