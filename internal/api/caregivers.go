package api

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"careconnect/internal/models"
)

// LinkParticipant attaches a registered participant to a caregiver by
// the participant's email.
func (c *Client) LinkParticipant(ctx context.Context, token, caregiverID, participantEmail string) LinkResult {
	env, status, err := c.do(ctx, http.MethodPost, "/caregivers/"+caregiverID+"/participants", token, nil, map[string]any{
		"participant_email": participantEmail,
		"is_primary":        true,
	})
	if err != nil {
		c.logger.Error("Link participant failed", zap.Error(err), zap.String("caregiver_id", caregiverID))
		return LinkResult{Error: err.Error()}
	}
	if !ok(status) || !env.Success {
		return LinkResult{Error: env.Error.message("Could not link participant")}
	}

	var payload struct {
		Link struct {
			Participant *models.CareRecipient `json:"participant"`
		} `json:"link"`
	}
	if err := decodeData(env, &payload); err != nil {
		c.logger.Error("Failed to decode link payload", zap.Error(err))
		return LinkResult{Error: "Could not link participant"}
	}
	return LinkResult{Success: true, Participant: payload.Link.Participant}
}

// ParticipantBookings returns a participant's upcoming bookings, for the
// caregiver schedule view.
func (c *Client) ParticipantBookings(ctx context.Context, token, participantID string) []models.Booking {
	env, status, err := c.do(ctx, http.MethodGet, "/participants/"+participantID+"/bookings", token, nil, nil)
	if err != nil {
		c.logger.Error("List participant bookings failed", zap.Error(err), zap.String("participant_id", participantID))
		return nil
	}
	if status != http.StatusOK || !env.Success {
		return nil
	}

	var payload struct {
		Bookings []models.Booking `json:"bookings"`
	}
	if err := decodeData(env, &payload); err != nil {
		c.logger.Error("Failed to decode participant bookings payload", zap.Error(err))
		return nil
	}
	return payload.Bookings
}

// CaregiverParticipants lists the care recipients linked to a caregiver.
func (c *Client) CaregiverParticipants(ctx context.Context, token, caregiverID string) []models.CareRecipient {
	env, status, err := c.do(ctx, http.MethodGet, "/caregivers/"+caregiverID+"/participants", token, nil, nil)
	if err != nil {
		c.logger.Error("List care recipients failed", zap.Error(err), zap.String("caregiver_id", caregiverID))
		return nil
	}
	if status != http.StatusOK || !env.Success {
		return nil
	}

	var payload struct {
		Participants []models.CareRecipient `json:"participants"`
	}
	if err := decodeData(env, &payload); err != nil {
		c.logger.Error("Failed to decode care recipients payload", zap.Error(err))
		return nil
	}
	return payload.Participants
}
