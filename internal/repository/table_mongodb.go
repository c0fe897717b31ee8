package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// countersCollection holds one sequence document per auto-increment table.
const countersCollection = "counters"

// MongoDBTableRepository implements TableRepository using MongoDB.
// Each table is a collection; the row key lives in the "id" field.
type MongoDBTableRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoDBTableRepository creates a new MongoDB table repository.
func NewMongoDBTableRepository(uri, database string, logger *zap.Logger) (*MongoDBTableRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	for _, name := range TableNames() {
		indexModel := mongo.IndexModel{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}
		if _, err := db.Collection(name).Indexes().CreateOne(ctx, indexModel); err != nil {
			logger.Warn("failed to create index", zap.String("collection", name), zap.Error(err))
		}
	}

	logger.Info("mongodb table repository initialized", zap.String("database", database))
	return &MongoDBTableRepository{client: client, db: db}, nil
}

func mongoFilter(spec tableSpec, filters []Filter) (bson.M, error) {
	filter := bson.M{}
	for _, f := range filters {
		if err := spec.checkColumn(f.Column); err != nil {
			return nil, err
		}
		switch f.Op {
		case OpEq:
			filter[f.Column] = f.Value
		case OpILike:
			pattern, ok := f.Value.(string)
			if !ok {
				return nil, fmt.Errorf("ilike on %s requires a string pattern", f.Column)
			}
			filter[f.Column] = primitive.Regex{Pattern: likeToRegex(pattern), Options: "i"}
		default:
			return nil, fmt.Errorf("unsupported filter operator %q", f.Op)
		}
	}
	return filter, nil
}

// Select returns the documents of table matching q.
func (r *MongoDBTableRepository) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	spec, err := lookupTable(table)
	if err != nil {
		return nil, err
	}
	filter, err := mongoFilter(spec, q.Filters)
	if err != nil {
		return nil, err
	}

	opts := options.Find()
	if q.Order != nil {
		if err := spec.checkColumn(q.Order.Column); err != nil {
			return nil, err
		}
		dir := -1
		if q.Order.Ascending {
			dir = 1
		}
		opts.SetSort(bson.D{{Key: q.Order.Column, Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	return r.find(ctx, spec, filter, opts)
}

func (r *MongoDBTableRepository) find(ctx context.Context, spec tableSpec, filter bson.M, opts *options.FindOptions) ([]Row, error) {
	cursor, err := r.db.Collection(spec.name).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find in %s: %w", spec.name, err)
	}
	defer cursor.Close(ctx)

	out := []Row{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", spec.name, err)
		}
		out = append(out, documentToRow(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", spec.name, err)
	}
	return out, nil
}

// nextID increments and returns the sequence for table.
func (r *MongoDBTableRepository) nextID(ctx context.Context, table string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.db.Collection(countersCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": table}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).
		Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate id for %s: %w", table, err)
	}
	return counter.Seq, nil
}

// Insert writes rows and returns them with their allocated ids.
func (r *MongoDBTableRepository) Insert(ctx context.Context, table string, rows ...Row) ([]Row, error) {
	spec, err := lookupTable(table)
	if err != nil {
		return nil, err
	}

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		cols, err := spec.insertColumns(row)
		if err != nil {
			return nil, err
		}
		doc := bson.M{}
		stored := Row{}
		for _, col := range cols {
			doc[col] = row[col]
			stored[col] = row[col]
		}
		if spec.autoIncrement && isZeroKey(row[spec.primaryKey]) {
			id, err := r.nextID(ctx, spec.name)
			if err != nil {
				return nil, err
			}
			doc[spec.primaryKey] = id
			stored[spec.primaryKey] = id
		}
		if _, err := r.db.Collection(spec.name).InsertOne(ctx, doc); err != nil {
			return nil, fmt.Errorf("failed to insert into %s: %w", spec.name, err)
		}
		out = append(out, fillColumns(spec, stored))
	}
	return out, nil
}

// Update applies patch to the matching documents and returns them as stored.
func (r *MongoDBTableRepository) Update(ctx context.Context, table string, patch Row, filters ...Filter) ([]Row, error) {
	spec, err := lookupTable(table)
	if err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return nil, ErrMissingFilter
	}
	cols, err := spec.patchColumns(patch)
	if err != nil {
		return nil, err
	}
	filter, err := mongoFilter(spec, filters)
	if err != nil {
		return nil, err
	}

	// Resolve the ids first so the read-back is not affected by the patch.
	matched, err := r.find(ctx, spec, filter, options.Find())
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return []Row{}, nil
	}
	ids := make(bson.A, 0, len(matched))
	for _, m := range matched {
		ids = append(ids, m[spec.primaryKey])
	}

	set := bson.M{}
	for _, col := range cols {
		set[col] = patch[col]
	}
	byID := bson.M{spec.primaryKey: bson.M{"$in": ids}}
	if _, err := r.db.Collection(spec.name).UpdateMany(ctx, byID, bson.M{"$set": set}); err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", spec.name, err)
	}
	return r.find(ctx, spec, byID, options.Find())
}

// Delete removes the matching documents.
func (r *MongoDBTableRepository) Delete(ctx context.Context, table string, filters ...Filter) (int64, error) {
	spec, err := lookupTable(table)
	if err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, ErrMissingFilter
	}
	filter, err := mongoFilter(spec, filters)
	if err != nil {
		return 0, err
	}

	result, err := r.db.Collection(spec.name).DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", spec.name, err)
	}
	return result.DeletedCount, nil
}

// GetStats returns statistics about the MongoDB database.
func (r *MongoDBTableRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	counts := make(map[string]int64, len(tables))
	for _, name := range TableNames() {
		n, err := r.db.Collection(name).EstimatedDocumentCount(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		counts[name] = n
	}

	stats := map[string]interface{}{
		"driver":   "mongodb",
		"database": r.db.Name(),
		"tables":   counts,
	}

	var dbStats bson.M
	if err := r.db.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&dbStats); err == nil {
		stats["data_size_bytes"] = dbStats["dataSize"]
		stats["storage_size_bytes"] = dbStats["storageSize"]
	}

	return stats, nil
}

// Close disconnects from MongoDB.
func (r *MongoDBTableRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// documentToRow drops the Mongo object id and normalizes BSON scalars.
func documentToRow(doc bson.M) Row {
	row := make(Row, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		switch val := v.(type) {
		case int32:
			row[k] = int64(val)
		case primitive.DateTime:
			row[k] = val.Time().UTC().Format(time.RFC3339)
		default:
			row[k] = v
		}
	}
	return row
}

// fillColumns sets every schema column missing from row to nil, the way a
// SQL RETURNING * would report it.
func fillColumns(spec tableSpec, row Row) Row {
	for col := range spec.columns {
		if _, ok := row[col]; !ok {
			row[col] = nil
		}
	}
	return row
}

// Ensure MongoDBTableRepository implements TableRepository
var _ TableRepository = (*MongoDBTableRepository)(nil)
