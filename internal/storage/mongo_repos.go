package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/good-yellow-bee/projtrack/internal/models"
)

// Document shapes. Dates are stored as BSON dates at UTC midnight.

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Username  string             `bson:"username"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	Role      string             `bson:"role"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type taskDoc struct {
	Task string `bson:"task"`
}

type projectDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	TaskList    []taskDoc          `bson:"task_list"`
	UserID      string             `bson:"user_id"`
	AssignDate  *time.Time         `bson:"assign_date,omitempty"`
	DueDate     *time.Time         `bson:"due_date,omitempty"`
	StartDate   *time.Time         `bson:"start_date,omitempty"`
	EndDate     *time.Time         `bson:"end_date,omitempty"`
	Status      string             `bson:"status"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

type tokenDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	TokenHash string             `bson:"token_hash"`
	ExpiresAt time.Time          `bson:"expires_at"`
	CreatedAt time.Time          `bson:"created_at"`
	Revoked   bool               `bson:"revoked"`
	RevokedAt *time.Time         `bson:"revoked_at,omitempty"`
}

func (d *userDoc) toModel() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.Password,
		Role:         models.Role(d.Role),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func projectToDoc(p *models.Project) *projectDoc {
	tasks := make([]taskDoc, len(p.TaskList))
	for i, t := range p.TaskList {
		tasks[i] = taskDoc{Task: t.Task}
	}
	return &projectDoc{
		Title:       p.Title,
		Description: p.Description,
		TaskList:    tasks,
		UserID:      p.UserID,
		AssignDate:  dateToBSON(p.AssignDate),
		DueDate:     dateToBSON(p.DueDate),
		StartDate:   dateToBSON(p.StartDate),
		EndDate:     dateToBSON(p.EndDate),
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (d *projectDoc) toModel() *models.Project {
	tasks := make([]models.Task, len(d.TaskList))
	for i, t := range d.TaskList {
		tasks[i] = models.Task{Task: t.Task}
	}
	return &models.Project{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		TaskList:    tasks,
		UserID:      d.UserID,
		AssignDate:  dateFromBSON(d.AssignDate),
		DueDate:     dateFromBSON(d.DueDate),
		StartDate:   dateFromBSON(d.StartDate),
		EndDate:     dateFromBSON(d.EndDate),
		Status:      models.ProjectStatus(d.Status),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func dateToBSON(d models.Date) *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

func dateFromBSON(t *time.Time) models.Date {
	if t == nil {
		return models.Date{}
	}
	return models.NewDate(*t)
}

// Users

type mongoUserRepo struct {
	coll *mongo.Collection
}

func (r *mongoUserRepo) Create(ctx context.Context, user *models.User) error {
	doc := &userDoc{
		ID:        primitive.NewObjectID(),
		Username:  user.Username,
		Email:     user.Email,
		Password:  user.PasswordHash,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mongoWriteErr("insert user", err)
	}
	user.ID = doc.ID.Hex()
	return nil
}

func (r *mongoUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, ok := objectID(id)
	if !ok {
		//nolint:nilnil
		return nil, nil
	}
	return r.findOne(ctx, "get user by id", bson.M{"_id": oid})
}

func (r *mongoUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "get user by username", bson.M{"username": username})
}

func (r *mongoUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "get user by email", bson.M{"email": email})
}

func (r *mongoUserRepo) GetByLogin(ctx context.Context, identifier string) (*models.User, error) {
	user, err := r.GetByEmail(ctx, identifier)
	if err != nil || user != nil {
		return user, err
	}
	return r.GetByUsername(ctx, identifier)
}

func (r *mongoUserRepo) findOne(ctx context.Context, op string, filter bson.M) (*models.User, error) {
	var doc userDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}

func (r *mongoUserRepo) List(ctx context.Context) ([]*models.User, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	users := make([]*models.User, len(docs))
	for i := range docs {
		users[i] = docs[i].toModel()
	}
	return users, nil
}

func (r *mongoUserRepo) Count(ctx context.Context) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// Projects

type mongoProjectRepo struct {
	coll *mongo.Collection
}

func (r *mongoProjectRepo) Create(ctx context.Context, project *models.Project) error {
	doc := projectToDoc(project)
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mongoWriteErr("insert project", err)
	}
	project.ID = doc.ID.Hex()
	return nil
}

func (r *mongoProjectRepo) GetByID(ctx context.Context, id string) (*models.Project, error) {
	oid, ok := objectID(id)
	if !ok {
		//nolint:nilnil
		return nil, nil
	}
	return r.findOne(ctx, "get project by id", bson.M{"_id": oid})
}

func (r *mongoProjectRepo) GetByTitle(ctx context.Context, title, userID string) (*models.Project, error) {
	return r.findOne(ctx, "get project by title", bson.M{"title": title, "user_id": userID})
}

func (r *mongoProjectRepo) findOne(ctx context.Context, op string, filter bson.M) (*models.Project, error) {
	var doc projectDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}

func (r *mongoProjectRepo) Update(ctx context.Context, project *models.Project) error {
	oid, ok := objectID(project.ID)
	if !ok {
		return fmt.Errorf("update project %s: %w", project.ID, ErrNotFound)
	}
	doc := projectToDoc(project)
	set := bson.M{
		"title":       doc.Title,
		"description": doc.Description,
		"task_list":   doc.TaskList,
		"user_id":     doc.UserID,
		"assign_date": doc.AssignDate,
		"due_date":    doc.DueDate,
		"start_date":  doc.StartDate,
		"end_date":    doc.EndDate,
		"status":      doc.Status,
		"updated_at":  doc.UpdatedAt,
	}
	result, err := r.coll.UpdateByID(ctx, oid, bson.M{"$set": set})
	if err != nil {
		return mongoWriteErr("update project", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("update project %s: %w", project.ID, ErrNotFound)
	}
	return nil
}

func (r *mongoProjectRepo) UpdateTitle(ctx context.Context, update models.TitleUpdate) error {
	oid, ok := objectID(update.ID)
	if !ok {
		return fmt.Errorf("update project title %s: %w", update.ID, ErrNotFound)
	}
	set := bson.M{
		"title":      update.Title,
		"updated_at": time.Now(),
	}
	if update.Status != "" {
		set["status"] = string(update.Status)
	}
	result, err := r.coll.UpdateByID(ctx, oid, bson.M{"$set": set})
	if err != nil {
		return mongoWriteErr("update project title", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("update project title %s: %w", update.ID, ErrNotFound)
	}
	return nil
}

func (r *mongoProjectRepo) ListTitles(ctx context.Context) ([]*models.ProjectTitle, error) {
	opts := options.Find().
		SetProjection(bson.M{"title": 1, "assign_date": 1, "end_date": 1, "status": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list project titles: %w", err)
	}
	var docs []projectDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode project titles: %w", err)
	}
	titles := make([]*models.ProjectTitle, len(docs))
	for i, d := range docs {
		titles[i] = &models.ProjectTitle{
			ID:         d.ID.Hex(),
			Title:      d.Title,
			AssignDate: dateFromBSON(d.AssignDate),
			EndDate:    dateFromBSON(d.EndDate),
			Status:     models.ProjectStatus(d.Status),
		}
	}
	return titles, nil
}

// Refresh tokens

type mongoTokenRepo struct {
	coll *mongo.Collection
}

func (r *mongoTokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	doc := &tokenDoc{
		ID:        primitive.NewObjectID(),
		UserID:    token.UserID,
		TokenHash: token.TokenHash,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
		Revoked:   token.Revoked,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mongoWriteErr("insert refresh token", err)
	}
	token.ID = doc.ID.Hex()
	return nil
}

func (r *mongoTokenRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var doc tokenDoc
	err := r.coll.FindOne(ctx, bson.M{"token_hash": tokenHash}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query refresh token: %w", err)
	}
	return &models.RefreshToken{
		ID:        doc.ID.Hex(),
		UserID:    doc.UserID,
		TokenHash: doc.TokenHash,
		ExpiresAt: doc.ExpiresAt,
		CreatedAt: doc.CreatedAt,
		Revoked:   doc.Revoked,
		RevokedAt: doc.RevokedAt,
	}, nil
}

func (r *mongoTokenRepo) RevokeByTokenHash(ctx context.Context, tokenHash string) (int64, error) {
	update := bson.M{"$set": bson.M{"revoked": true, "revoked_at": time.Now()}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"token_hash": tokenHash, "revoked": false}, update)
	if err != nil {
		return 0, fmt.Errorf("revoke token by hash: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoTokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	update := bson.M{"$set": bson.M{"revoked": true, "revoked_at": time.Now()}}
	if _, err := r.coll.UpdateMany(ctx, bson.M{"user_id": userID, "revoked": false}, update); err != nil {
		return fmt.Errorf("revoke all tokens for user: %w", err)
	}
	return nil
}

func (r *mongoTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now()}})
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return result.DeletedCount, nil
}
