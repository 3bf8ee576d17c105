package bridge

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/zai/internal/errors"
)

// parseReply extracts the response text from a JSON reply.
// A non-empty "error" field wins over the response path.
func parseReply(transport string, body []byte, responsePath string) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", apierrors.NewParseError("reply is not valid JSON", "")
	}

	if remoteErr := gjson.GetBytes(body, "error"); remoteErr.Exists() {
		msg := strings.TrimSpace(remoteErr.String())
		if remoteErr.IsObject() {
			msg = strings.TrimSpace(remoteErr.Get("message").String())
		}
		if msg != "" {
			return "", apierrors.NewBridgeError(transport, "engine reported", errors.New(msg))
		}
	}

	result := gjson.GetBytes(body, responsePath)
	if !result.Exists() {
		return "", apierrors.NewParseError("response field missing", responsePath)
	}
	return result.String(), nil
}
