package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/maxischmaxi/code-preview-server/internal/models"
	"github.com/maxischmaxi/code-preview-server/internal/repositories"
)

type templateDocument struct {
	ID       primitive.ObjectID `bson:"_id"`
	Title    string             `bson:"title"`
	Code     string             `bson:"code"`
	Solution string             `bson:"solution"`
	Language string             `bson:"language"`
}

func (d templateDocument) toModel() models.Template {
	return models.Template{
		ID:       d.ID.Hex(),
		Title:    d.Title,
		Code:     d.Code,
		Solution: d.Solution,
		Language: d.Language,
	}
}

func templateFromModel(id primitive.ObjectID, t *models.Template) templateDocument {
	return templateDocument{ID: id, Title: t.Title, Code: t.Code, Solution: t.Solution, Language: t.Language}
}

type TemplateRepo struct{ col *mongo.Collection }

func NewTemplateRepo(col *mongo.Collection) *TemplateRepo { return &TemplateRepo{col: col} }

func (r *TemplateRepo) Create(ctx context.Context, t *models.Template) (*models.Template, error) {
	doc := templateFromModel(primitive.NewObjectID(), t)
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	out := doc.toModel()
	return &out, nil
}

func (r *TemplateRepo) Get(ctx context.Context, id string) (*models.Template, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repositories.ErrNotFound
	}
	var doc templateDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	out := doc.toModel()
	return &out, nil
}

func (r *TemplateRepo) Update(ctx context.Context, t *models.Template) error {
	oid, err := primitive.ObjectIDFromHex(t.ID)
	if err != nil {
		return repositories.ErrNotFound
	}
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": oid}, templateFromModel(oid, t))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *TemplateRepo) Delete(ctx context.Context, id string) error {
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

// List returns every template sorted by title.
func (r *TemplateRepo) List(ctx context.Context) ([]models.Template, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []templateDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Template, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}
