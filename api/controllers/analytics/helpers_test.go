package analytics

import (
	"context"

	"github.com/angelmondragon/voltline-backend/internal/analytics/types"
)

type testDashboardService struct {
	last     *types.DashboardRequest
	response *types.DashboardResponse
	err      error
}

func (s *testDashboardService) Dashboard(ctx context.Context, req types.DashboardRequest) (*types.DashboardResponse, error) {
	s.last = &req
	if s.err != nil {
		return nil, s.err
	}
	if s.response == nil {
		s.response = &types.DashboardResponse{}
	}
	return s.response, nil
}

func (s *testDashboardService) called() bool {
	return s.last != nil
}
