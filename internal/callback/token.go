package callback

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const tokenPrefix = "cb1"

// Token identifies one callback future: the workflow hosting it and the future's id.
type Token struct {
	WorkflowID string
	ID         string
}

// String renders the token as cb1.<base64url(workflowID)>.<id>.
func (t Token) String() string {
	return tokenPrefix + "." + base64.RawURLEncoding.EncodeToString([]byte(t.WorkflowID)) + "." + t.ID
}

func ParseToken(s string) (Token, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 || parts[0] != tokenPrefix {
		return Token{}, fmt.Errorf("malformed callback token %q", s)
	}
	wid, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Token{}, fmt.Errorf("malformed callback token %q: %w", s, err)
	}
	if len(wid) == 0 || parts[2] == "" {
		return Token{}, fmt.Errorf("malformed callback token %q", s)
	}
	return Token{WorkflowID: string(wid), ID: parts[2]}, nil
}
