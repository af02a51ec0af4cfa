package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KarpovAlexandrGo/task-tracker/internal/entity"
	"github.com/KarpovAlexandrGo/task-tracker/internal/usecase"
	"github.com/KarpovAlexandrGo/task-tracker/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	collectionName = "tasks"
	queryTimeout   = 5 * time.Second
)

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description,omitempty"`
	Status      bool               `bson:"status"`
	Priority    string             `bson:"priority"`
	Category    string             `bson:"category"`
	DueDate     *time.Time         `bson:"dueDate,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func toDocument(t entity.Task) taskDocument {
	return taskDocument{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    string(t.Priority),
		Category:    string(t.Category),
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (d taskDocument) toEntity() entity.Task {
	return entity.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Status:      d.Status,
		Priority:    entity.Priority(d.Priority),
		Category:    entity.Category(d.Category),
		DueDate:     d.DueDate,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// Connect открывает соединение и проверяет его пингом. Ошибка означает,
// что хранилище недоступно и сервис должен перейти на резервное.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Log.Info("Connected to MongoDB successfully")
	return client, nil
}

type TaskRepository struct {
	coll   *mongo.Collection
	logger *logrus.Logger
}

func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{
		coll:   db.Collection(collectionName),
		logger: logger.Log,
	}
}

func (r *TaskRepository) List(ctx context.Context) ([]entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		r.logger.WithField("method", "List").WithError(err).Error("Failed to list tasks")
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	var docs []taskDocument
	if err := cur.All(ctx, &docs); err != nil {
		r.logger.WithField("method", "List").WithError(err).Error("Failed to decode tasks")
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}

	tasks := make([]entity.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.toEntity())
	}
	return tasks, nil
}

func (r *TaskRepository) Get(ctx context.Context, id string) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"method":  "Get",
			"task_id": id,
		}).WithError(err).Warn("Malformed task id, reporting not found")
		return entity.Task{}, usecase.ErrTaskNotFound
	}

	var doc taskDocument
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.WithFields(logrus.Fields{
				"method":  "Get",
				"task_id": id,
			}).Warn("Task not found")
			return entity.Task{}, usecase.ErrTaskNotFound
		}
		r.logger.WithFields(logrus.Fields{
			"method":  "Get",
			"task_id": id,
		}).WithError(err).Error("Failed to get task")
		return entity.Task{}, fmt.Errorf("failed to get task: %w", err)
	}

	return doc.toEntity(), nil
}

func (r *TaskRepository) Create(ctx context.Context, task entity.Task) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	doc := toDocument(task)
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		r.logger.WithFields(logrus.Fields{
			"method": "Create",
			"title":  task.Title,
		}).WithError(err).Error("Failed to create task")
		return entity.Task{}, fmt.Errorf("failed to create task: %w", err)
	}

	return doc.toEntity(), nil
}

// Update выполняет одно атомарное обновление через aggregation pipeline:
// updatedAt = max(now, previous + 1ms). Значения передаются через $literal,
// чтобы строки вида "$field" не трактовались как ссылки на поля.
func (r *TaskRepository) Update(ctx context.Context, id string, patch entity.TaskPatch, now time.Time) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"method":  "Update",
			"task_id": id,
		}).WithError(err).Warn("Malformed task id, reporting not found")
		return entity.Task{}, usecase.ErrTaskNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc taskDocument
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, updatePipeline(patch, now), opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.WithFields(logrus.Fields{
				"method":  "Update",
				"task_id": id,
			}).Warn("Task not found for update")
			return entity.Task{}, usecase.ErrTaskNotFound
		}
		r.logger.WithFields(logrus.Fields{
			"method":  "Update",
			"task_id": id,
		}).WithError(err).Error("Failed to update task")
		return entity.Task{}, fmt.Errorf("failed to update task: %w", err)
	}

	return doc.toEntity(), nil
}

func updatePipeline(patch entity.TaskPatch, now time.Time) mongo.Pipeline {
	set := bson.D{}
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: literal(*patch.Title)})
	}
	if patch.Description != nil {
		set = append(set, bson.E{Key: "description", Value: literal(*patch.Description)})
	}
	if patch.Status != nil {
		set = append(set, bson.E{Key: "status", Value: literal(*patch.Status)})
	}
	if patch.Priority != nil {
		set = append(set, bson.E{Key: "priority", Value: literal(string(*patch.Priority))})
	}
	if patch.Category != nil {
		set = append(set, bson.E{Key: "category", Value: literal(string(*patch.Category))})
	}
	if patch.DueDate != nil && !patch.ClearDueDate {
		set = append(set, bson.E{Key: "dueDate", Value: literal(*patch.DueDate)})
	}
	set = append(set, bson.E{Key: "updatedAt", Value: bson.M{
		"$max": bson.A{entity.Timestamp(now), bson.M{"$add": bson.A{"$updatedAt", 1}}},
	}})

	pipeline := mongo.Pipeline{{{Key: "$set", Value: set}}}
	if patch.ClearDueDate {
		pipeline = append(pipeline, bson.D{{Key: "$unset", Value: "dueDate"}})
	}
	return pipeline
}

func literal(v any) bson.M {
	return bson.M{"$literal": v}
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"method":  "Delete",
			"task_id": id,
		}).WithError(err).Warn("Malformed task id, reporting not found")
		return usecase.ErrTaskNotFound
	}

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"method":  "Delete",
			"task_id": id,
		}).WithError(err).Error("Failed to delete task")
		return fmt.Errorf("failed to delete task: %w", err)
	}

	if result.DeletedCount == 0 {
		r.logger.WithFields(logrus.Fields{
			"method":  "Delete",
			"task_id": id,
		}).Warn("Task not found for deletion")
		return usecase.ErrTaskNotFound
	}

	return nil
}
