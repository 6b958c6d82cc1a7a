package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"careconnect/internal/models"
)

// CreateVolunteerProfile creates the volunteer record for a freshly
// registered user.
func (c *Client) CreateVolunteerProfile(ctx context.Context, token, userID string, interests, skills []string, availability map[string][]string) VolunteerProfileResult {
	env, status, err := c.do(ctx, http.MethodPost, "/volunteers", token, nil, map[string]any{
		"user_id":      userID,
		"interests":    interests,
		"skills":       skills,
		"availability": availability,
	})
	if err != nil {
		c.logger.Error("Create volunteer profile failed", zap.Error(err), zap.String("user_id", userID))
		return VolunteerProfileResult{Error: err.Error()}
	}
	if !ok(status) || !env.Success {
		return VolunteerProfileResult{Error: env.Error.message("Failed to create volunteer profile")}
	}

	var volunteer models.Volunteer
	if err := decodeData(env, &volunteer); err != nil {
		c.logger.Error("Failed to decode volunteer payload", zap.Error(err))
		return VolunteerProfileResult{Error: "Failed to create volunteer profile"}
	}
	return VolunteerProfileResult{Success: true, Volunteer: &volunteer}
}

// ListVolunteerOpportunities returns upcoming activities that still need
// volunteers.
func (c *Client) ListVolunteerOpportunities(ctx context.Context, token string, limit int) []models.Activity {
	query := url.Values{}
	query.Set("limit", fmt.Sprint(limit))
	query.Set("needs_volunteers", "true")

	env, status, err := c.do(ctx, http.MethodGet, "/volunteers/opportunities", token, query, nil)
	if err != nil {
		c.logger.Error("List opportunities failed", zap.Error(err))
		return nil
	}
	if status != http.StatusOK || !env.Success {
		return nil
	}

	var payload struct {
		Activities []models.Activity `json:"activities"`
	}
	if err := decodeData(env, &payload); err != nil {
		c.logger.Error("Failed to decode opportunities payload", zap.Error(err))
		return nil
	}
	return payload.Activities
}

// RespondToAssignment accepts or declines an invitation. Response is
// "accepted" or "declined".
func (c *Client) RespondToAssignment(ctx context.Context, token, assignmentID, response string) Result {
	env, status, err := c.do(ctx, http.MethodPost, "/volunteers/assignments/"+assignmentID+"/respond", token, nil, map[string]string{
		"response": response,
	})
	if err != nil {
		c.logger.Error("Assignment response failed", zap.Error(err), zap.String("assignment_id", assignmentID))
		return Result{Error: err.Error()}
	}
	if !ok(status) || !env.Success {
		return Result{Error: env.Error.message("Could not record your response")}
	}
	return Result{Success: true}
}

// ListVolunteerAssignments returns a volunteer's assignments grouped by
// status. A missing grouped map is rebuilt client-side so callers can rely
// on it.
func (c *Client) ListVolunteerAssignments(ctx context.Context, token, volunteerID string) AssignmentsResult {
	env, status, err := c.do(ctx, http.MethodGet, "/volunteers/"+volunteerID+"/assignments", token, nil, nil)
	if err != nil {
		c.logger.Error("List assignments failed", zap.Error(err), zap.String("volunteer_id", volunteerID))
		return AssignmentsResult{}
	}
	if status != http.StatusOK || !env.Success {
		return AssignmentsResult{}
	}

	var result AssignmentsResult
	if err := decodeData(env, &result); err != nil {
		c.logger.Error("Failed to decode assignments payload", zap.Error(err))
		return AssignmentsResult{}
	}
	if result.Grouped == nil {
		result.Grouped = make(map[string][]models.VolunteerAssignment)
		for _, a := range result.Assignments {
			result.Grouped[a.Status] = append(result.Grouped[a.Status], a)
		}
	}
	return result
}

// CheckIn marks a volunteer as arrived for an assignment.
func (c *Client) CheckIn(ctx context.Context, token, assignmentID string) CheckInResult {
	env, status, err := c.do(ctx, http.MethodPost, "/volunteers/assignments/"+assignmentID+"/check-in", token, nil, nil)
	if err != nil {
		c.logger.Error("Check-in failed", zap.Error(err), zap.String("assignment_id", assignmentID))
		return CheckInResult{Error: err.Error()}
	}
	if status != http.StatusOK || !env.Success {
		return CheckInResult{Error: env.Error.message("Check-in failed")}
	}

	var result CheckInResult
	if err := decodeData(env, &result); err != nil {
		c.logger.Error("Failed to decode check-in payload", zap.Error(err))
		return CheckInResult{Error: "Check-in failed"}
	}
	result.Success = true
	return result
}

// CheckOut closes an assignment and returns hours credited.
func (c *Client) CheckOut(ctx context.Context, token, assignmentID string, notes string) CheckOutResult {
	env, status, err := c.do(ctx, http.MethodPost, "/volunteers/assignments/"+assignmentID+"/check-out", token, nil, map[string]string{
		"notes": notes,
	})
	if err != nil {
		c.logger.Error("Check-out failed", zap.Error(err), zap.String("assignment_id", assignmentID))
		return CheckOutResult{Error: err.Error()}
	}
	if status != http.StatusOK || !env.Success {
		return CheckOutResult{Error: env.Error.message("Check-out failed")}
	}

	var result CheckOutResult
	if err := decodeData(env, &result); err != nil {
		c.logger.Error("Failed to decode check-out payload", zap.Error(err))
		return CheckOutResult{Error: "Check-out failed"}
	}
	result.Success = true
	return result
}

// VolunteerStats returns a volunteer's lifetime and month-to-date stats.
func (c *Client) VolunteerStats(ctx context.Context, token, volunteerID string) *models.VolunteerStats {
	env, status, err := c.do(ctx, http.MethodGet, "/volunteers/"+volunteerID+"/stats", token, nil, nil)
	if err != nil {
		c.logger.Error("Get volunteer stats failed", zap.Error(err), zap.String("volunteer_id", volunteerID))
		return nil
	}
	if status != http.StatusOK || !env.Success {
		return nil
	}

	var stats models.VolunteerStats
	if err := decodeData(env, &stats); err != nil {
		c.logger.Error("Failed to decode volunteer stats", zap.Error(err))
		return nil
	}
	return &stats
}

// Leaderboard returns the top volunteers by contributed hours.
func (c *Client) Leaderboard(ctx context.Context, token string, limit int) []models.LeaderboardEntry {
	query := url.Values{}
	query.Set("limit", fmt.Sprint(limit))

	env, status, err := c.do(ctx, http.MethodGet, "/volunteers/leaderboard", token, query, nil)
	if err != nil {
		c.logger.Error("Get leaderboard failed", zap.Error(err))
		return nil
	}
	if status != http.StatusOK || !env.Success {
		return nil
	}

	var payload struct {
		Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	}
	if err := decodeData(env, &payload); err != nil {
		c.logger.Error("Failed to decode leaderboard payload", zap.Error(err))
		return nil
	}
	return payload.Leaderboard
}
