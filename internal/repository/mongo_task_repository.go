package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/taskboard-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTaskRepository is a MongoDB implementation of TaskRepository.
// Comments, time logs and attachments are embedded in the task document.
type MongoTaskRepository struct {
	tasks *mongo.Collection
	users *mongo.Collection
}

// NewMongoTaskRepository creates a new TaskRepository backed by MongoDB
func NewMongoTaskRepository(db *mongo.Database) TaskRepository {
	return &MongoTaskRepository{
		tasks: db.Collection(TasksCollection),
		users: db.Collection(UsersCollection),
	}
}

// Create creates a new task
func (r *MongoTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	// $push fails on a null field, so the embedded arrays always exist.
	if task.Comments == nil {
		task.Comments = []models.TaskComment{}
	}
	if task.TimeLogs == nil {
		task.TimeLogs = []models.TaskTimeLog{}
	}
	if task.Attachments == nil {
		task.Attachments = []models.TaskAttachment{}
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}

	if _, err := r.tasks.InsertOne(ctx, task); err != nil {
		return translateMongoError(err)
	}
	return nil
}

// FindByID finds a task by ID with its relations resolved
func (r *MongoTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}

	var task models.Task
	if err := r.tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&task); err != nil {
		return nil, translateMongoError(err)
	}

	for i := range task.Comments {
		task.Comments[i].TaskID = task.ID
	}
	for i := range task.TimeLogs {
		task.TimeLogs[i].TaskID = task.ID
	}
	for i := range task.Attachments {
		task.Attachments[i].TaskID = task.ID
	}

	tasks := []models.Task{task}
	if err := r.resolveUsers(ctx, tasks, true); err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

// List retrieves tasks with filtering and pagination
func (r *MongoTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	query := buildTaskFilter(filter)

	total, err := r.tasks.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	cursor, err := r.tasks.Aggregate(ctx, listPipeline(query, filter))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, 0, fmt.Errorf("failed to decode tasks: %w", err)
	}

	if err := r.resolveUsers(ctx, tasks, false); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// listPipeline sorts and pages matching tasks. Undated tasks sort last by due date.
func listPipeline(query bson.M, filter TaskFilter) mongo.Pipeline {
	pipeline := mongo.Pipeline{{{Key: "$match", Value: query}}}

	if filter.SortByDueDate {
		pipeline = append(pipeline,
			bson.D{{Key: "$addFields", Value: bson.M{
				"_undated": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{bson.M{"$type": "$due_date"}, "date"}}, 0, 1}},
			}}},
			bson.D{{Key: "$sort", Value: bson.D{
				{Key: "_undated", Value: 1},
				{Key: "due_date", Value: 1},
				{Key: "created_at", Value: -1},
			}}},
			bson.D{{Key: "$project", Value: bson.M{"_undated": 0}}},
		)
	} else {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}})
	}

	if offset, limit, ok := pageOffset(filter.Page, filter.PageSize); ok {
		pipeline = append(pipeline,
			bson.D{{Key: "$skip", Value: int64(offset)}},
			bson.D{{Key: "$limit", Value: int64(limit)}},
		)
	}
	return pipeline
}

// buildTaskFilter translates a TaskFilter into a query document.
func buildTaskFilter(filter TaskFilter) bson.M {
	query := bson.M{}
	if filter.AssignedToMe {
		query["assigned_to_id"] = filter.UserID
	} else {
		query["$or"] = bson.A{
			bson.M{"created_by_id": filter.UserID},
			bson.M{"assigned_to_id": filter.UserID},
		}
	}
	if !filter.IncludeArchived {
		query["is_archived"] = false
	}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}
	if filter.Priority != nil {
		query["priority"] = *filter.Priority
	}
	return query
}

// resolveUsers fills Creator, Assignee and, when withComments is set, comment authors.
func (r *MongoTaskRepository) resolveUsers(ctx context.Context, tasks []models.Task, withComments bool) error {
	seen := map[string]struct{}{}
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, t := range tasks {
		add(t.CreatedByID)
		if t.AssignedToID != nil {
			add(*t.AssignedToID)
		}
		if withComments {
			for _, c := range t.Comments {
				add(c.AuthorID)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}

	cursor, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return fmt.Errorf("failed to resolve task users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return fmt.Errorf("failed to decode task users: %w", err)
	}

	byID := make(map[string]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	for i := range tasks {
		tasks[i].Creator = byID[tasks[i].CreatedByID]
		if tasks[i].AssignedToID != nil {
			tasks[i].Assignee = byID[*tasks[i].AssignedToID]
		}
		if withComments {
			for j := range tasks[i].Comments {
				tasks[i].Comments[j].Author = byID[tasks[i].Comments[j].AuthorID]
			}
		}
	}
	return nil
}

// Update persists the scalar fields of a task
func (r *MongoTaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}
	return r.updateTask(ctx, bson.M{"_id": task.ID}, bson.M{"$set": bson.M{
		"title":           task.Title,
		"description":     task.Description,
		"status":          task.Status,
		"priority":        task.Priority,
		"due_date":        task.DueDate,
		"assigned_to_id":  task.AssignedToID,
		"tags":            tags,
		"estimated_hours": task.EstimatedHours,
		"actual_hours":    task.ActualHours,
		"completed_at":    task.CompletedAt,
		"is_archived":     task.IsArchived,
		"archived_at":     task.ArchivedAt,
		"updated_at":      task.UpdatedAt,
	}})
}

// Delete permanently removes a task and its embedded sub-records
func (r *MongoTaskRepository) Delete(ctx context.Context, id string) error {
	result, err := r.tasks.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translateMongoError(err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddComment appends a comment to a task
func (r *MongoTaskRepository) AddComment(ctx context.Context, taskID string, comment *models.TaskComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now
	}
	comment.UpdatedAt = now
	comment.TaskID = taskID

	return r.updateTask(ctx, bson.M{"_id": taskID}, bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updated_at": now},
	})
}

// UpdateComment rewrites the content and edit markers of a comment
func (r *MongoTaskRepository) UpdateComment(ctx context.Context, taskID string, comment *models.TaskComment) error {
	return r.updateTask(ctx, bson.M{"_id": taskID, "comments.id": comment.ID}, bson.M{"$set": bson.M{
		"comments.$.content":    comment.Content,
		"comments.$.is_edited":  comment.IsEdited,
		"comments.$.edited_at":  comment.EditedAt,
		"comments.$.updated_at": comment.UpdatedAt,
	}})
}

// DeleteComment removes a comment from a task
func (r *MongoTaskRepository) DeleteComment(ctx context.Context, taskID, commentID string) error {
	return r.updateTask(ctx, bson.M{"_id": taskID, "comments.id": commentID}, bson.M{
		"$pull": bson.M{"comments": bson.M{"id": commentID}},
	})
}

// AddTimeLog appends a time log and adds its duration to the task's actual hours
func (r *MongoTaskRepository) AddTimeLog(ctx context.Context, taskID string, log *models.TaskTimeLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = now
	}
	log.TaskID = taskID

	return r.updateTask(ctx, bson.M{"_id": taskID}, bson.M{
		"$push": bson.M{"time_logs": log},
		"$inc":  bson.M{"actual_hours": float64(log.Duration) / 60},
		"$set":  bson.M{"updated_at": now},
	})
}

// AddAttachments appends attachment metadata to a task
func (r *MongoTaskRepository) AddAttachments(ctx context.Context, taskID string, attachments []models.TaskAttachment) error {
	if len(attachments) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make(bson.A, 0, len(attachments))
	for i := range attachments {
		if attachments[i].ID == "" {
			attachments[i].ID = uuid.NewString()
		}
		if attachments[i].UploadedAt.IsZero() {
			attachments[i].UploadedAt = now
		}
		attachments[i].TaskID = taskID
		docs = append(docs, attachments[i])
	}

	return r.updateTask(ctx, bson.M{"_id": taskID}, bson.M{
		"$push": bson.M{"attachments": bson.M{"$each": docs}},
		"$set":  bson.M{"updated_at": now},
	})
}

// DeleteAttachment removes attachment metadata from a task
func (r *MongoTaskRepository) DeleteAttachment(ctx context.Context, taskID, attachmentID string) error {
	return r.updateTask(ctx, bson.M{"_id": taskID, "attachments.id": attachmentID}, bson.M{
		"$pull": bson.M{"attachments": bson.M{"id": attachmentID}},
	})
}

func (r *MongoTaskRepository) updateTask(ctx context.Context, filter, update bson.M) error {
	result, err := r.tasks.UpdateOne(ctx, filter, update)
	if err != nil {
		return translateMongoError(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type mongoStatusAggregate struct {
	Status         models.TaskStatus `bson:"_id"`
	Count          int64             `bson:"count"`
	Overdue        int64             `bson:"overdue"`
	EstimatedHours float64           `bson:"estimated_hours"`
	ActualHours    float64           `bson:"actual_hours"`
}

// Stats aggregates the non-archived tasks a user created or is assigned to
func (r *MongoTaskRepository) Stats(ctx context.Context, userID string, now time.Time) (*models.TaskCounts, error) {
	cursor, err := r.tasks.Aggregate(ctx, statsPipeline(userID, now))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []mongoStatusAggregate
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode task aggregate: %w", err)
	}

	counts := &models.TaskCounts{ByStatus: make(map[models.TaskStatus]int64, len(models.AllTaskStatuses))}
	for _, s := range models.AllTaskStatuses {
		counts.ByStatus[s] = 0
	}
	for _, row := range rows {
		counts.Total += row.Count
		counts.ByStatus[row.Status] += row.Count
		counts.Overdue += row.Overdue
		counts.EstimatedHours += row.EstimatedHours
		counts.ActualHours += row.ActualHours
	}
	return counts, nil
}

// statsPipeline groups a user's non-archived tasks by status.
func statsPipeline(userID string, now time.Time) mongo.Pipeline {
	open := make(bson.A, 0, len(models.OpenTaskStatuses))
	for _, s := range models.OpenTaskStatuses {
		open = append(open, string(s))
	}

	overdue := bson.M{"$and": bson.A{
		bson.M{"$eq": bson.A{bson.M{"$type": "$due_date"}, "date"}},
		bson.M{"$lt": bson.A{"$due_date", now.UTC()}},
		bson.M{"$in": bson.A{"$status", open}},
	}}

	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"is_archived": false,
			"$or": bson.A{
				bson.M{"created_by_id": userID},
				bson.M{"assigned_to_id": userID},
			},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":             "$status",
			"count":           bson.M{"$sum": 1},
			"overdue":         bson.M{"$sum": bson.M{"$cond": bson.A{overdue, 1, 0}}},
			"estimated_hours": bson.M{"$sum": "$estimated_hours"},
			"actual_hours":    bson.M{"$sum": "$actual_hours"},
		}}},
	}
}
