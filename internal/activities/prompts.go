package activities

import (
	"encoding/json"
	"fmt"
	"strings"

	"claim-intake-service/internal/modal"
)

const intakeInstructions = `You summarise insurance claims before intake. A follow-up interview will clarify
whatever you cannot establish now, so extract only facts that the note or the photos
support directly. Never guess.

Fill each field in one to three sentences, looking at both the note and the photos:
- objectDescription: the object or scene the note and photos clearly show.
- damageDescription: damage that is visible or stated without ambiguity.
- locationOfIncident: the best supported location (street, car park, room, ...).
- involvedParties: people, vehicles or organisations that are shown or named.

When a field lacks evidence, write "Unknown — needs clarification: <short reason>".
When note and photos disagree, write "Contradiction — <what conflicts>".
Leave out personal data and do not assign liability.`

const completenessInstructions = `You decide whether a structured insurance claim description is complete enough
for a human reviewer.

A field marked "Unknown — needs clarification" needs one targeted question. A field
marked "Contradiction — ..." needs the conflict named and one question that resolves
it. If a reviewer comment is present, treat what it asks for as missing information.

Set "complete" to "complete" when nothing needs following up, and put a short thank
you in "requestForInfo". Otherwise set it to "incomplete" and write one compact chat
message in "requestForInfo" asking only for what is missing, with concrete questions
grouped together. Keep a neutral tone and do not ask for sensitive data unrelated to
the loss.`

const interviewInstructions = `You run the follow-up interview for an insurance claim.

Read the whole conversation and fold every fact the user stated into the claim
description, replacing "Unknown" and "Contradiction" markers the answers resolve.
Do not go beyond what the user said, and keep each field to one to three sentences.

The interview is complete once everything in the original request has been answered
and no field still carries a marker. Then set "status" to "complete" and thank the
user in "message". Otherwise set "status" to "incomplete" and ask the single most
useful next question in "message". Stay friendly and professional.`

func intakePrompt(note string) string {
	return "User note: " + note
}

func completenessPrompt(in modal.CompletenessInput) string {
	var b strings.Builder
	b.WriteString("Claim description:\n")
	b.WriteString(indentJSON(in.ClaimDescription))
	if in.ReviewComment != "" {
		fmt.Fprintf(&b, "\n\nReviewer comment: %s", in.ReviewComment)
	}
	return b.String()
}

func interviewPrompt(in modal.RefineInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original request for information:\n%s\n\n", in.RequestForInfo)
	b.WriteString("Current claim description:\n")
	b.WriteString(indentJSON(in.ClaimDescription))
	b.WriteString("\n\nConversation:\n")
	for i, m := range in.ChatHistory {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch m.Author() {
		case modal.AuthorUser:
			b.WriteString("User: ")
		default:
			b.WriteString("Agent: ")
		}
		b.WriteString(m.Text())
	}
	return b.String()
}

func indentJSON(v interface{}) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(out)
}
