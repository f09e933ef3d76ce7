package session

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const idSuffixLen = 9

// NewID returns a session identifier of the form "session_<unix millis>_<random suffix>".
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:idSuffixLen]
	return "session_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix
}
