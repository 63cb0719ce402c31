package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aurora-advisory/advisory-api/internal/core/domain"
	"github.com/aurora-advisory/advisory-api/internal/core/ports"
)

// RequestRepository stores each advisory request as one document with its
// status history embedded, so a status write and its history entry are a
// single-document update.
type RequestRepository struct {
	coll *mongo.Collection
}

func NewRequestRepository(db *mongo.Database) *RequestRepository {
	return &RequestRepository{coll: db.Collection(collectionRequests)}
}

type mongoHistoryEntry struct {
	OldStatus *string   `bson:"old_status"`
	NewStatus string    `bson:"new_status"`
	ChangedBy string    `bson:"changed_by"`
	ChangedAt time.Time `bson:"changed_at"`
}

type mongoRequest struct {
	ID                  primitive.ObjectID  `bson:"_id"`
	UserID              string              `bson:"user_id"`
	Goal                string              `bson:"goal"`
	Amount              int64               `bson:"amount"`
	MonthlyContribution *int64              `bson:"monthly_contribution,omitempty"`
	TimeHorizonYears    int                 `bson:"time_horizon_years"`
	RiskProfile         string              `bson:"risk_profile"`
	Notes               *string             `bson:"notes,omitempty"`
	Status              string              `bson:"status"`
	CreatedAt           time.Time           `bson:"created_at"`
	UpdatedAt           time.Time           `bson:"updated_at"`
	StatusHistory       []mongoHistoryEntry `bson:"status_history"`
}

type mongoOwner struct {
	Email string `bson:"email"`
	Role  string `bson:"role"`
}

type mongoRequestWithOwner struct {
	Request mongoRequest `bson:",inline"`
	Owner   *mongoOwner  `bson:"owner,omitempty"`
}

func toMongoRequest(r *domain.AdvisoryRequest, id primitive.ObjectID) mongoRequest {
	history := make([]mongoHistoryEntry, 0, len(r.History))
	for _, h := range r.History {
		var old *string
		if h.OldStatus != nil {
			v := string(*h.OldStatus)
			old = &v
		}
		history = append(history, mongoHistoryEntry{
			OldStatus: old,
			NewStatus: string(h.NewStatus),
			ChangedBy: h.ChangedBy,
			ChangedAt: h.ChangedAt.UTC(),
		})
	}
	return mongoRequest{
		ID:                  id,
		UserID:              r.UserID,
		Goal:                r.Goal,
		Amount:              r.Amount,
		MonthlyContribution: r.MonthlyContribution,
		TimeHorizonYears:    r.TimeHorizonYears,
		RiskProfile:         string(r.RiskProfile),
		Notes:               r.Notes,
		Status:              string(r.Status),
		CreatedAt:           r.CreatedAt.UTC(),
		UpdatedAt:           r.UpdatedAt.UTC(),
		StatusHistory:       history,
	}
}

func (mr mongoRequest) toDomain() *domain.AdvisoryRequest {
	id := mr.ID.Hex()
	history := make([]domain.StatusHistoryEntry, 0, len(mr.StatusHistory))
	for _, h := range mr.StatusHistory {
		var old *domain.RequestStatus
		if h.OldStatus != nil {
			v := domain.RequestStatus(*h.OldStatus)
			old = &v
		}
		history = append(history, domain.StatusHistoryEntry{
			RequestID: id,
			OldStatus: old,
			NewStatus: domain.RequestStatus(h.NewStatus),
			ChangedBy: h.ChangedBy,
			ChangedAt: h.ChangedAt.UTC(),
		})
	}
	return &domain.AdvisoryRequest{
		ID:                  id,
		UserID:              mr.UserID,
		Goal:                mr.Goal,
		Amount:              mr.Amount,
		MonthlyContribution: mr.MonthlyContribution,
		TimeHorizonYears:    mr.TimeHorizonYears,
		RiskProfile:         domain.RiskProfile(mr.RiskProfile),
		Notes:               mr.Notes,
		Status:              domain.RequestStatus(mr.Status),
		CreatedAt:           mr.CreatedAt.UTC(),
		UpdatedAt:           mr.UpdatedAt.UTC(),
		History:             history,
	}
}

// Create inserts the request together with its initial history.
func (r *RequestRepository) Create(ctx context.Context, req *domain.AdvisoryRequest) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid := primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, toMongoRequest(req, oid)); err != nil {
		return fmt.Errorf("insert request: %w", err)
	}

	req.ID = oid.Hex()
	for i := range req.History {
		req.History[i].RequestID = req.ID
	}
	return nil
}

func (r *RequestRepository) FindByID(ctx context.Context, id string) (*domain.AdvisoryRequest, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrRequestNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mr mongoRequest
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&mr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, fmt.Errorf("find request: %w", err)
	}
	return mr.toDomain(), nil
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func (r *RequestRepository) ListByUser(ctx context.Context, userID string) ([]*domain.AdvisoryRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoRequest
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode requests: %w", err)
	}

	out := make([]*domain.AdvisoryRequest, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// List joins each request with its owner's account so the free-text query
// can match the owner's email, then pages the result with $facet to get the
// total in the same round trip.
func (r *RequestRepository) List(ctx context.Context, f ports.ListRequestsFilter) ([]ports.RequestWithOwner, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	match := bson.M{}
	if f.Status != "" {
		match["status"] = f.Status
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$addFields", Value: bson.M{
			"owner_oid": bson.M{"$convert": bson.M{
				"input": "$user_id", "to": "objectId", "onError": nil, "onNull": nil,
			}},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         collectionUsers,
			"localField":   "owner_oid",
			"foreignField": "_id",
			"as":           "owner",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$owner", "preserveNullAndEmptyArrays": true}}},
	}

	if f.Query != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.Query), Options: "i"}
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"goal": re},
			bson.M{"notes": re},
			bson.M{"owner.email": re},
		}}}})
	}

	pipeline = append(pipeline,
		bson.D{{Key: "$sort", Value: newestFirst}},
		bson.D{{Key: "$facet", Value: bson.M{
			"items": bson.A{
				bson.M{"$skip": int64(f.Skip)},
				bson.M{"$limit": int64(f.Limit)},
			},
			"total": bson.A{bson.M{"$count": "n"}},
		}}},
	)

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, fmt.Errorf("aggregate requests: %w", err)
	}
	defer cur.Close(ctx)

	var page []struct {
		Items []mongoRequestWithOwner `bson:"items"`
		Total []struct {
			N int64 `bson:"n"`
		} `bson:"total"`
	}
	if err := cur.All(ctx, &page); err != nil {
		return nil, 0, fmt.Errorf("decode requests: %w", err)
	}
	if len(page) == 0 {
		return []ports.RequestWithOwner{}, 0, nil
	}

	var total int64
	if len(page[0].Total) > 0 {
		total = page[0].Total[0].N
	}

	items := make([]ports.RequestWithOwner, 0, len(page[0].Items))
	for _, d := range page[0].Items {
		item := ports.RequestWithOwner{Request: d.Request.toDomain()}
		if d.Owner != nil {
			item.Owner = domain.RequestOwner{Email: d.Owner.Email, Role: domain.Role(d.Owner.Role)}
		}
		items = append(items, item)
	}
	return items, total, nil
}

// UpdateStatus applies the write only while the stored status is one of
// u.From and not terminal. The history entry is appended by the same update
// pipeline and reads the previous status from the document itself, so the
// entry always records the status that was actually replaced.
func (r *RequestRepository) UpdateStatus(ctx context.Context, u ports.StatusUpdate) (*domain.AdvisoryRequest, error) {
	oid, err := primitive.ObjectIDFromHex(u.RequestID)
	if err != nil {
		return nil, domain.ErrRequestNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"_id": oid,
		"status": bson.M{
			"$in":  statusStrings(u.From),
			"$nin": statusStrings(domain.TerminalStatuses),
		},
	}
	at := u.At.UTC()
	entry := bson.M{
		"old_status": "$status",
		"new_status": bson.M{"$literal": string(u.To)},
		"changed_by": bson.M{"$literal": u.ChangedBy},
		"changed_at": at,
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"status_history": bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$status_history", bson.A{}}},
				bson.A{entry},
			}},
			"status":     bson.M{"$literal": string(u.To)},
			"updated_at": at,
		}}},
	}

	var mr mongoRequest
	err = r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&mr)
	if err == nil {
		return mr.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update request status: %w", err)
	}

	current, err := r.FindByID(ctx, u.RequestID)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return nil, domain.ErrTerminalStatus
	}
	return nil, domain.Conflictf("request status changed to %s concurrently", current.Status)
}

func (r *RequestRepository) CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("count requests: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		N      int64  `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode counts: %w", err)
	}

	out := make(map[domain.RequestStatus]int64, len(rows))
	for _, row := range rows {
		out[domain.RequestStatus(row.Status)] = row.N
	}
	return out, nil
}

func statusStrings(statuses []domain.RequestStatus) bson.A {
	out := make(bson.A, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
