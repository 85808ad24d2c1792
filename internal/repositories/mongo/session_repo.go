package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/maxischmaxi/code-preview-server/internal/models"
	"github.com/maxischmaxi/code-preview-server/internal/repositories"
)

type sessionDocument struct {
	ID                primitive.ObjectID `bson:"_id"`
	Code              string             `bson:"code"`
	Language          string             `bson:"language"`
	CreatedAt         time.Time          `bson:"createdAt"`
	CreatedBy         string             `bson:"createdBy"`
	Admins            []string           `bson:"admins"`
	Solution          string             `bson:"solution"`
	SolutionPresented bool               `bson:"solutionPresented"`
	Linting           bool               `bson:"linting"`
}

func (d sessionDocument) toModel() *models.Session {
	admins := d.Admins
	if admins == nil {
		admins = []string{}
	}
	return &models.Session{
		ID:                d.ID.Hex(),
		Code:              d.Code,
		Language:          d.Language,
		CreatedAt:         d.CreatedAt,
		CreatedBy:         d.CreatedBy,
		Admins:            admins,
		Solution:          d.Solution,
		SolutionPresented: d.SolutionPresented,
		Linting:           d.Linting,
	}
}

func sessionFromModel(id primitive.ObjectID, s *models.Session) sessionDocument {
	admins := s.Admins
	if admins == nil {
		admins = []string{}
	}
	return sessionDocument{
		ID:                id,
		Code:              s.Code,
		Language:          s.Language,
		CreatedAt:         s.CreatedAt,
		CreatedBy:         s.CreatedBy,
		Admins:            admins,
		Solution:          s.Solution,
		SolutionPresented: s.SolutionPresented,
		Linting:           s.Linting,
	}
}

// SessionRepo stores sessions in one collection keyed by ObjectID.
type SessionRepo struct{ col *mongo.Collection }

func NewSessionRepo(col *mongo.Collection) *SessionRepo { return &SessionRepo{col: col} }

func (r *SessionRepo) Create(ctx context.Context, s *models.Session) (*models.Session, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	doc := sessionFromModel(primitive.NewObjectID(), s)
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*models.Session, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repositories.ErrNotFound
	}
	var doc sessionDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *SessionRepo) Update(ctx context.Context, s *models.Session) error {
	oid, err := primitive.ObjectIDFromHex(s.ID)
	if err != nil {
		return repositories.ErrNotFound
	}
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": oid}, sessionFromModel(oid, s))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repositories.ErrNotFound
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
