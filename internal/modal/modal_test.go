package modal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaimRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ClaimRequest
		wantErr string
	}{
		{
			name: "valid",
			req:  ClaimRequest{Description: "car hit a pole, bumper dented", Images: []string{"car.png"}, Amount: 1200},
		},
		{
			name:    "empty note",
			req:     ClaimRequest{Description: "  ", Amount: 10},
			wantErr: "description must not be empty",
		},
		{
			name:    "zero amount",
			req:     ClaimRequest{Description: "note", Amount: 0},
			wantErr: "amount must be positive",
		},
		{
			name:    "blank image reference",
			req:     ClaimRequest{Description: "note", Amount: 5, Images: []string{"a.png", ""}},
			wantErr: "image reference 1 is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestClassifyField(t *testing.T) {
	assert.Equal(t, FieldSupported, ClassifyField("Silver sedan, front bumper"))
	assert.Equal(t, FieldUnknown, ClassifyField("Unknown — needs clarification: no street given"))
	assert.Equal(t, FieldUnknown, ClassifyField("unknown - needs clarification: blurry photo"))
	assert.Equal(t, FieldContradiction, ClassifyField("Contradiction — note says rear, photo shows front"))
	assert.Equal(t, FieldUnknown, ClassifyField(""))
}

func TestClaimDescription_OpenFields(t *testing.T) {
	d := ClaimDescription{
		ObjectDescription:  "Silver sedan next to a lamp pole",
		DamageDescription:  "Dented front bumper",
		LocationOfIncident: "Unknown — needs clarification: no location in note or image",
		InvolvedParties:    "Contradiction — note mentions no one else, image shows a second car",
	}

	open := d.OpenFields()
	assert.Equal(t, map[string]FieldState{
		"locationOfIncident": FieldUnknown,
		"involvedParties":    FieldContradiction,
	}, open)

	d.LocationOfIncident = "Parking lot of 5th Street mall"
	d.InvolvedParties = "Driver only"
	assert.Empty(t, d.OpenFields())
}

func TestEvaluation_Validate(t *testing.T) {
	assert.NoError(t, Evaluation{Status: EvaluationApproved}.Validate())
	assert.NoError(t, Evaluation{Status: EvaluationRequestInfo, Comment: "more detail"}.Validate())
	assert.Error(t, Evaluation{Status: "maybe"}.Validate())
	assert.Error(t, Evaluation{Status: EvaluationRequestInfo}.Validate())
	assert.Error(t, Evaluation{Status: EvaluationRequestInfo, Comment: "  "}.Validate())

	assert.True(t, EvaluationRejected.Terminal())
	assert.False(t, EvaluationRequestInfo.Terminal())
}

func TestChatMessage_Author(t *testing.T) {
	assert.Equal(t, AuthorAgent, AgentTurn("Where did it happen?").Author())
	assert.Equal(t, AuthorUser, UserTurn("Main St").Author())
	assert.Equal(t, "Main St", UserTurn("Main St").Text())
}

func TestCreateInterviewRequest_Validate(t *testing.T) {
	assert.NoError(t, CreateInterviewRequest{OnComplete: "cb1.x.y", Round: 1}.Validate())
	assert.Error(t, CreateInterviewRequest{Round: 1}.Validate())
	assert.Error(t, CreateInterviewRequest{OnComplete: "cb1.x.y"}.Validate())
}
