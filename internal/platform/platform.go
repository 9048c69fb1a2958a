package platform

import (
	"github.com/go-kit/log"

	"github.com/rflorenc/awx-launch/internal/models"
)

// New creates the controller client for a set of credentials.
// The credentials' username and password are not stored; they are passed to
// GetToken by the caller.
func New(creds models.Credentials, logger log.Logger, watch WatchOptions) *AWX {
	return NewAWX(NewClient(creds), logger, watch)
}
