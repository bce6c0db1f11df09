package repository

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Shivanand-hulikatti/event-api/internal/database"
	"github.com/Shivanand-hulikatti/event-api/internal/ids"
	"github.com/Shivanand-hulikatti/event-api/internal/model"
	"github.com/Shivanand-hulikatti/event-api/internal/pagination"
)

// eventDocument is the persisted shape of an event in MongoDB.
type eventDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	Type        string             `bson:"type,omitempty"`
	Name        string             `bson:"name"`
	Tagline     string             `bson:"tagline"`
	Schedule    string             `bson:"schedule"`
	Description string             `bson:"description"`
	Files       map[string]string  `bson:"files"`
	Moderator   string             `bson:"moderator"`
	Category    string             `bson:"category"`
	SubCategory string             `bson:"sub_category"`
	RigorRank   string             `bson:"rigor_rank"`
	Attendees   []string           `bson:"attendees"`
	CreatedAt   time.Time          `bson:"created_at,omitempty"`
	InsertSeq   int64              `bson:"insert_seq,omitempty"`
}

func (d eventDocument) toModel() model.Event {
	attendees := d.Attendees
	if attendees == nil {
		attendees = []string{}
	}
	return model.Event{
		ID:          d.ID.Hex(),
		Type:        d.Type,
		Name:        d.Name,
		Tagline:     d.Tagline,
		Schedule:    d.Schedule,
		Description: d.Description,
		Files:       d.Files,
		Moderator:   d.Moderator,
		Category:    d.Category,
		SubCategory: d.SubCategory,
		RigorRank:   d.RigorRank,
		Attendees:   attendees,
	}
}

// listProjection is the public field set of the listing endpoint.
var listProjection = bson.D{
	{Key: "_id", Value: 1},
	{Key: "name", Value: 1},
	{Key: "tagline", Value: 1},
	{Key: "schedule", Value: 1},
	{Key: "description", Value: 1},
	{Key: "files", Value: 1},
	{Key: "moderator", Value: 1},
	{Key: "category", Value: 1},
	{Key: "sub_category", Value: 1},
	{Key: "rigor_rank", Value: 1},
	{Key: "attendees", Value: 1},
}

// MongoEventRepository stores events in a MongoDB collection.
type MongoEventRepository struct {
	coll *mongo.Collection
	now  func() time.Time
	seq  *insertSequence
}

// insertSequence hands out strictly increasing nanosecond stamps. It orders
// inserts that share a clock reading, which created_at (millisecond BSON
// dates) cannot.
type insertSequence struct {
	last atomic.Int64
	now  func() time.Time
}

func (s *insertSequence) next() int64 {
	for {
		last := s.last.Load()
		n := s.now().UnixNano()
		if n <= last {
			n = last + 1
		}
		if s.last.CompareAndSwap(last, n) {
			return n
		}
	}
}

// NewMongoEventRepository binds a repository to the named collection of an
// established connection.
func NewMongoEventRepository(conn *database.Mongo, collection string) (*MongoEventRepository, error) {
	if conn == nil {
		return nil, ErrNotConnected
	}
	if collection == "" {
		collection = CollectionName
	}
	now := func() time.Time { return time.Now().UTC() }
	return &MongoEventRepository{
		coll: conn.Collection(collection),
		now:  now,
		seq:  &insertSequence{now: now},
	}, nil
}

// Insert writes e under a new ObjectID unless e already carries an id.
func (r *MongoEventRepository) Insert(ctx context.Context, e model.Event) (string, error) {
	oid := primitive.NewObjectID()
	if e.ID != "" {
		parsed, err := ids.ObjectID(e.ID)
		if err != nil {
			return "", fmt.Errorf("insert event: %w", err)
		}
		oid = parsed
	}

	doc := eventDocument{
		ID:          oid,
		Type:        model.TypeEvent,
		Name:        e.Name,
		Tagline:     e.Tagline,
		Schedule:    e.Schedule,
		Description: e.Description,
		Files:       e.Files,
		Moderator:   e.Moderator,
		Category:    e.Category,
		SubCategory: e.SubCategory,
		RigorRank:   e.RigorRank,
		Attendees:   []string{},
		CreatedAt:   r.now(),
		InsertSeq:   r.seq.next(),
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", storeErr("insert event", err)
	}
	inserted, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", storeErr("insert event", fmt.Errorf("unexpected inserted id %T", res.InsertedID))
	}
	return inserted.Hex(), nil
}

// FindByID loads one document or returns ErrNotFound.
func (r *MongoEventRepository) FindByID(ctx context.Context, id string) (*model.Event, error) {
	oid, err := ids.ObjectID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc eventDocument
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, storeErr("get event", err)
	}
	e := doc.toModel()
	return &e, nil
}

// CountAll returns the number of documents in the collection.
func (r *MongoEventRepository) CountAll(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, storeErr("count events", err)
	}
	return n, nil
}

// UpdateByID sets the editable fields and returns the modified count.
func (r *MongoEventRepository) UpdateByID(ctx context.Context, id string, fields model.EventFields, files map[string]string) (int64, error) {
	oid, err := ids.ObjectID(id)
	if err != nil {
		return 0, nil
	}

	set := bson.D{
		{Key: "name", Value: fields.Name},
		{Key: "tagline", Value: fields.Tagline},
		{Key: "schedule", Value: fields.Schedule},
		{Key: "description", Value: fields.Description},
		{Key: "files", Value: files},
		{Key: "moderator", Value: fields.Moderator},
		{Key: "category", Value: fields.Category},
		{Key: "sub_category", Value: fields.SubCategory},
		{Key: "rigor_rank", Value: fields.RigorRank},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return 0, storeErr("update event", err)
	}
	return res.ModifiedCount, nil
}

// DeleteByID removes the document and returns the deleted count.
func (r *MongoEventRepository) DeleteByID(ctx context.Context, id string) (int64, error) {
	oid, err := ids.ObjectID(id)
	if err != nil {
		return 0, nil
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return 0, storeErr("delete event", err)
	}
	return res.DeletedCount, nil
}

// FetchPage parses schedule server-side with $dateFromString. Documents whose
// schedule fails to parse get a null date and are sorted after all others;
// insert_seq keeps equal dates in insertion order. created_at and _id order
// documents written before insert_seq existed.
func (r *MongoEventRepository) FetchPage(ctx context.Context, skip, take int64) ([]model.Event, error) {
	cursor, err := r.coll.Aggregate(ctx, pagePipeline(skip, take))
	if err != nil {
		return nil, storeErr("list events", err)
	}
	defer cursor.Close(ctx)

	var docs []eventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeErr("decode events", err)
	}

	events := make([]model.Event, 0, len(docs))
	for _, d := range docs {
		events = append(events, d.toModel())
	}
	return pagination.Project(events), nil
}

func pagePipeline(skip, take int64) mongo.Pipeline {
	scheduleDate := bson.D{{Key: "$dateFromString", Value: bson.D{
		{Key: "dateString", Value: bson.D{{Key: "$trim", Value: bson.D{{Key: "input", Value: "$schedule"}}}}},
		{Key: "format", Value: pagination.MongoScheduleFormat},
		{Key: "onError", Value: nil},
		{Key: "onNull", Value: nil},
	}}}
	scheduleInvalid := bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$type", Value: "$scheduleDate"}}, "date"}}},
		0,
		1,
	}}}

	return mongo.Pipeline{
		{{Key: "$addFields", Value: bson.D{{Key: "scheduleDate", Value: scheduleDate}}}},
		{{Key: "$addFields", Value: bson.D{{Key: "scheduleInvalid", Value: scheduleInvalid}}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "scheduleInvalid", Value: 1},
			{Key: "scheduleDate", Value: 1},
			{Key: "insert_seq", Value: 1},
			{Key: "created_at", Value: 1},
			{Key: "_id", Value: 1},
		}}},
		{{Key: "$skip", Value: skip}},
		{{Key: "$limit", Value: take}},
		{{Key: "$project", Value: listProjection}},
	}
}
