package workflows

import (
	"fmt"

	"claim-intake-service/internal/modal"
)

func initialMessage(desc modal.ClaimDescription, requestForInfo string) string {
	return fmt.Sprintf(`We require additional input to process your claim.

Here is what we have so far:

**Object/Scene:** %s
**Damage:** %s
**Location:** %s
**Involved Parties:** %s

Here is the additional information we need:
%s`, desc.ObjectDescription, desc.DamageDescription, desc.LocationOfIncident, desc.InvolvedParties, requestForInfo)
}

func summary(resp modal.InterviewResponse) string {
	state := "is incomplete"
	if resp.Status == modal.VerdictComplete {
		state = "is complete"
	}
	return fmt.Sprintf("Claim information %s: %s", state, resp.Message)
}
