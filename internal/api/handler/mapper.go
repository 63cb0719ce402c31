package handler

import (
	"github.com/aurora-advisory/advisory-api/internal/core/domain"
	"github.com/aurora-advisory/advisory-api/internal/core/ports"
)

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

func toProfileResponse(p *domain.ClientProfile) profileResponse {
	resp := profileResponse{
		ID:               p.ID,
		UserID:           p.UserID,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		DateOfBirth:      p.DateOfBirth,
		Phone:            p.Phone,
		Income:           p.Income,
		MainGoal:         p.MainGoal,
		TimeHorizonYears: p.TimeHorizonYears,
		UpdatedAt:        p.UpdatedAt,
	}
	if p.RiskProfile != nil {
		risk := string(*p.RiskProfile)
		resp.RiskProfile = &risk
	}
	return resp
}

func toProfileInput(req profileRequest) ports.ProfileInput {
	return ports.ProfileInput{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		DateOfBirth:      req.DateOfBirth,
		Phone:            req.Phone,
		Income:           req.Income,
		MainGoal:         req.MainGoal,
		TimeHorizonYears: req.TimeHorizonYears,
		RiskProfile:      req.RiskProfile,
	}
}

func toRequestResponse(r *domain.AdvisoryRequest) requestResponse {
	return requestResponse{
		ID:                  r.ID,
		UserID:              r.UserID,
		Goal:                r.Goal,
		Amount:              r.Amount,
		MonthlyContribution: r.MonthlyContribution,
		TimeHorizonYears:    r.TimeHorizonYears,
		RiskProfile:         string(r.RiskProfile),
		Notes:               r.Notes,
		Status:              string(r.Status),
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func toRequestResponses(rs []*domain.AdvisoryRequest) []requestResponse {
	out := make([]requestResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, toRequestResponse(r))
	}
	return out
}

func toListRequestsResponse(res *ports.ListRequestsResult) listRequestsResponse {
	items := make([]staffRequestResponse, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, staffRequestResponse{
			requestResponse: toRequestResponse(it.Request),
			OwnerEmail:      it.Owner.Email,
			OwnerRole:       string(it.Owner.Role),
		})
	}
	return listRequestsResponse{Items: items, Total: res.Total, Skip: res.Skip, Limit: res.Limit}
}

func toHistoryResponse(entries []domain.StatusHistoryEntry) []historyEntryResponse {
	out := make([]historyEntryResponse, 0, len(entries))
	for _, h := range entries {
		var old *string
		if h.OldStatus != nil {
			v := string(*h.OldStatus)
			old = &v
		}
		out = append(out, historyEntryResponse{
			RequestID:       h.RequestID,
			OldStatus:       old,
			NewStatus:       string(h.NewStatus),
			ChangedByUserID: h.ChangedBy,
			ChangedAt:       h.ChangedAt,
		})
	}
	return out
}

func toStatsResponse(s *ports.RequestStats) statsResponse {
	return statsResponse{
		Total:     s.Total,
		Pending:   s.Pending,
		InReview:  s.InReview,
		Completed: s.Completed,
		Cancelled: s.Cancelled,
	}
}
